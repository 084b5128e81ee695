// Package memfs is an in-memory implementation of the async backend
// contract. Every primitive does its work immediately but delivers the
// result on a later event-loop turn, the way a promise-backed store
// would.
package memfs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"golang.org/x/sys/unix"

	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

// DefaultFDBase keeps memfs descriptors out of the range the host OS
// hands to the fallback filesystem.
const DefaultFDBase = 1 << 20

const blockSize = 4096

type node struct {
	name     string
	mode     uint32
	uid, gid uint32
	ino      uint64
	data     []byte
	children map[string]*node // nil for regular files
	mtime    time.Time
	ctime    time.Time
	atime    time.Time
}

func (n *node) isDir() bool { return n.children != nil }

func (n *node) size() int64 {
	if n.isDir() {
		return blockSize
	}
	return int64(len(n.data))
}

func (n *node) fileType() uint8 {
	if n.isDir() {
		return vfs.DTDir
	}
	return vfs.DTReg
}

type openFile struct {
	n      *node
	path   string
	flags  vfs.OpenFlags
	off    int64
	dirPos int
}

type FS struct {
	loop *loop.Loop

	mu     sync.Mutex
	root   *node
	files  map[int64]*openFile
	nextFD int64
	cwd    string
	inits  int
}

// New creates a backend whose tree is rooted at a directory named
// prefix, matching the path prefix the dispatcher routes on.
// Descriptors are issued starting at fdBase.
func New(l *loop.Loop, prefix string, fdBase int64) *FS {
	if fdBase <= 0 {
		fdBase = DefaultFDBase
	}
	now := time.Now()
	root := &node{
		name:     "/",
		mode:     unix.S_IFDIR | 0o755,
		children: make(map[string]*node),
		mtime:    now,
		ctime:    now,
		atime:    now,
	}
	mount := newNode(prefix, prefix, true, 0o755)
	root.children[prefix] = mount
	return &FS{
		loop:   l,
		root:   root,
		files:  make(map[int64]*openFile),
		nextFD: fdBase,
		cwd:    "/",
	}
}

func newNode(path, name string, dir bool, mode uint32) *node {
	now := time.Now()
	n := &node{
		name:  name,
		ino:   xxhash.Sum64String(path),
		mtime: now,
		ctime: now,
		atime: now,
	}
	if dir {
		n.mode = unix.S_IFDIR | (mode & 0o777)
		n.children = make(map[string]*node)
	} else {
		n.mode = unix.S_IFREG | (mode & 0o777)
	}
	return n
}

// InitCount reports how many times Init has run.
func (fs *FS) InitCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.inits
}

func (fs *FS) Init(resume func()) {
	fs.mu.Lock()
	fs.inits++
	fs.mu.Unlock()
	fs.loop.Schedule(resume)
}

// complete delivers a long result on the next loop turn.
func (fs *FS) complete(resume vfs.ResumeLong, ret int64) {
	fs.loop.Schedule(func() { resume(ret) })
}

func (fs *FS) completeCode(resume vfs.ResumeErrno, code vfs.Errno) {
	fs.loop.Schedule(func() { resume(code) })
}

func neg(errno vfs.Errno) int64 { return -int64(errno) }

func splitPath(path string) []string {
	comps := make([]string, 0, 8)
	for _, c := range strings.Split(path, "/") {
		switch c {
		case "", ".":
		case "..":
			if len(comps) > 0 {
				comps = comps[:len(comps)-1]
			}
		default:
			comps = append(comps, c)
		}
	}
	return comps
}

// lookup resolves path to a node. Callers hold fs.mu.
func (fs *FS) lookup(path string) (*node, vfs.Errno) {
	n := fs.root
	for _, c := range splitPath(path) {
		if !n.isDir() {
			return nil, vfs.ENOTDIR
		}
		child, ok := n.children[c]
		if !ok {
			return nil, vfs.ENOENT
		}
		n = child
	}
	return n, vfs.ESUCCESS
}

// lookupParent resolves the directory containing path's final component.
func (fs *FS) lookupParent(path string) (*node, string, vfs.Errno) {
	comps := splitPath(path)
	if len(comps) == 0 {
		return nil, "", vfs.EINVAL
	}
	n := fs.root
	for _, c := range comps[:len(comps)-1] {
		if !n.isDir() {
			return nil, "", vfs.ENOTDIR
		}
		child, ok := n.children[c]
		if !ok {
			return nil, "", vfs.ENOENT
		}
		n = child
	}
	if !n.isDir() {
		return nil, "", vfs.ENOTDIR
	}
	return n, comps[len(comps)-1], vfs.ESUCCESS
}

func (fs *FS) file(fd int64) (*openFile, vfs.Errno) {
	f, ok := fs.files[fd]
	if !ok {
		return nil, vfs.EBADF
	}
	return f, vfs.ESUCCESS
}

func (fs *FS) Open(path string, flags vfs.OpenFlags, mode uint32, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, errno := fs.lookupParent(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	n, ok := parent.children[name]
	switch {
	case ok:
		if flags.IsCreate() && flags&vfs.O_EXCL != 0 {
			fs.complete(resume, neg(vfs.EEXIST))
			return
		}
		if n.isDir() && flags.IsWrite() {
			fs.complete(resume, neg(vfs.EISDIR))
			return
		}
		if flags.IsTrunc() && !n.isDir() {
			n.data = nil
			n.mtime = time.Now()
		}
	case flags.IsCreate():
		n = newNode(path, name, false, mode)
		parent.children[name] = n
		parent.mtime = time.Now()
	default:
		fs.complete(resume, neg(vfs.ENOENT))
		return
	}

	fd := fs.nextFD
	fs.nextFD++
	fs.files[fd] = &openFile{n: n, path: path, flags: flags}
	fs.complete(resume, fd)
}

func (fs *FS) Close(fd int64, resume vfs.ResumeErrno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.files[fd]; !ok {
		fs.completeCode(resume, vfs.EBADF)
		return
	}
	delete(fs.files, fd)
	fs.completeCode(resume, vfs.ESUCCESS)
}

func (fs *FS) Read(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if f.n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	n := copy(buf, f.n.data[min64(f.off, f.n.size()):])
	f.off += int64(n)
	f.n.atime = time.Now()
	fs.complete(resume, int64(n))
}

func (fs *FS) Write(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if f.n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	if f.flags&vfs.O_APPEND != 0 {
		f.off = f.n.size()
	}
	f.n.data = writeAt(f.n.data, buf, f.off)
	f.off += int64(len(buf))
	f.n.mtime = time.Now()
	fs.complete(resume, int64(len(buf)))
}

func (fs *FS) Pread(fd int64, buf []byte, off int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if f.n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	if off < 0 {
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	n := copy(buf, f.n.data[min64(off, f.n.size()):])
	fs.complete(resume, int64(n))
}

func (fs *FS) Pwrite(fd int64, buf []byte, off int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if f.n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	if off < 0 {
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	f.n.data = writeAt(f.n.data, buf, off)
	f.n.mtime = time.Now()
	fs.complete(resume, int64(len(buf)))
}

func (fs *FS) Seek(fd int64, off int64, whence int, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	var base int64
	switch whence {
	case vfs.SeekSet:
	case vfs.SeekCur:
		base = f.off
	case vfs.SeekEnd:
		base = f.n.size()
	default:
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	pos := base + off
	if pos < 0 {
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	f.off = pos
	fs.complete(resume, pos)
}

func (fs *FS) Getdents(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if !f.n.isDir() {
		fs.complete(resume, neg(vfs.ENOTDIR))
		return
	}

	entries := dirEntries(f.n)
	if f.dirPos >= len(entries) {
		fs.complete(resume, 0)
		return
	}
	off := 0
	for _, ent := range entries[f.dirPos:] {
		next := vfs.AppendDirent(buf, off, ent)
		if next == off {
			break
		}
		off = next
		f.dirPos++
	}
	if off == 0 {
		// Not even one record fit.
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	fs.complete(resume, int64(off))
}

func dirEntries(dir *node) []vfs.DirEntry {
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]vfs.DirEntry, 0, len(names)+2)
	entries = append(entries,
		vfs.DirEntry{Name: ".", Type: vfs.DTDir, Ino: dir.ino},
		vfs.DirEntry{Name: "..", Type: vfs.DTDir, Ino: dir.ino},
	)
	for _, name := range names {
		child := dir.children[name]
		entries = append(entries, vfs.DirEntry{
			Name: name,
			Type: child.fileType(),
			Ino:  child.ino,
		})
	}
	for i := range entries {
		entries[i].Offset = int64(i + 1)
	}
	return entries
}

func (fs *FS) Unlink(path string, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, errno := fs.lookupParent(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	n, ok := parent.children[name]
	if !ok {
		fs.complete(resume, neg(vfs.ENOENT))
		return
	}
	if n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	delete(parent.children, name)
	parent.mtime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Mkdir(path string, mode uint32, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, errno := fs.lookupParent(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if _, ok := parent.children[name]; ok {
		fs.complete(resume, neg(vfs.EEXIST))
		return
	}
	parent.children[name] = newNode(path, name, true, mode)
	parent.mtime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Rmdir(path string, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, name, errno := fs.lookupParent(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	n, ok := parent.children[name]
	if !ok {
		fs.complete(resume, neg(vfs.ENOENT))
		return
	}
	if !n.isDir() {
		fs.complete(resume, neg(vfs.ENOTDIR))
		return
	}
	if len(n.children) > 0 {
		fs.complete(resume, neg(vfs.ENOTEMPTY))
		return
	}
	delete(parent.children, name)
	parent.mtime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Rename(oldPath, newPath string, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldParent, oldName, errno := fs.lookupParent(oldPath)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	n, ok := oldParent.children[oldName]
	if !ok {
		fs.complete(resume, neg(vfs.ENOENT))
		return
	}
	newParent, newName, errno := fs.lookupParent(newPath)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if target, ok := newParent.children[newName]; ok {
		if target.isDir() && len(target.children) > 0 {
			fs.complete(resume, neg(vfs.ENOTEMPTY))
			return
		}
		if target.isDir() != n.isDir() {
			if target.isDir() {
				fs.complete(resume, neg(vfs.EISDIR))
			} else {
				fs.complete(resume, neg(vfs.ENOTDIR))
			}
			return
		}
	}
	delete(oldParent.children, oldName)
	n.name = newName
	newParent.children[newName] = n
	now := time.Now()
	oldParent.mtime = now
	newParent.mtime = now
	fs.complete(resume, 0)
}

func (fs *FS) Stat(path string, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fillInfo(st, n)
	fs.complete(resume, 0)
}

// Lstat matches Stat; the backend stores no symbolic links.
func (fs *FS) Lstat(path string, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.Stat(path, st, resume)
}

func (fs *FS) Fstat(fd int64, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fillInfo(st, f.n)
	fs.complete(resume, 0)
}

func fillInfo(st *vfs.FileInfo, n *node) {
	*st = vfs.FileInfo{
		Name:    n.name,
		Size:    n.size(),
		Mode:    n.mode,
		ModTime: n.mtime,
		IsDir:   n.isDir(),
		Nlink:   1,
		Uid:     n.uid,
		Gid:     n.gid,
		Ino:     n.ino,
		Blksize: blockSize,
		Blocks:  (n.size() + 511) / 512,
		Atime:   n.atime,
		Ctime:   n.ctime,
	}
}

func (fs *FS) Truncate(path string, size int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, truncateNode(n, size))
}

func (fs *FS) Ftruncate(fd int64, size int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, truncateNode(f.n, size))
}

func truncateNode(n *node, size int64) int64 {
	if n.isDir() {
		return neg(vfs.EISDIR)
	}
	if size < 0 {
		return neg(vfs.EINVAL)
	}
	if size <= int64(len(n.data)) {
		n.data = n.data[:size]
	} else {
		n.data = append(n.data, make([]byte, size-int64(len(n.data)))...)
	}
	n.mtime = time.Now()
	return 0
}

func (fs *FS) Fallocate(fd int64, mode int64, off, length int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if f.n.isDir() {
		fs.complete(resume, neg(vfs.EISDIR))
		return
	}
	if off < 0 || length <= 0 || mode != 0 {
		fs.complete(resume, neg(vfs.EINVAL))
		return
	}
	if want := off + length; want > f.n.size() {
		f.n.data = append(f.n.data, make([]byte, want-f.n.size())...)
	}
	fs.complete(resume, 0)
}

func (fs *FS) Chmod(path string, mode uint32, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	n.mode = (n.mode &^ 0o7777) | (mode & 0o7777)
	n.ctime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Fchmod(fd int64, mode uint32, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	f.n.mode = (f.n.mode &^ 0o7777) | (mode & 0o7777)
	f.n.ctime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Chown(path string, uid, gid int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	chownNode(n, uid, gid)
	fs.complete(resume, 0)
}

// Lchown matches Chown; the backend stores no symbolic links.
func (fs *FS) Lchown(path string, uid, gid int64, resume vfs.ResumeLong) {
	fs.Chown(path, uid, gid, resume)
}

func (fs *FS) Fchown(fd int64, uid, gid int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	chownNode(f.n, uid, gid)
	fs.complete(resume, 0)
}

func chownNode(n *node, uid, gid int64) {
	if uid >= 0 {
		n.uid = uint32(uid)
	}
	if gid >= 0 {
		n.gid = uint32(gid)
	}
	n.ctime = time.Now()
}

func (fs *FS) Access(path string, amode int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, 0)
}

// Readlink always fails: the backend stores no symbolic links.
func (fs *FS) Readlink(path string, buf []byte, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, neg(vfs.EINVAL))
}

func (fs *FS) Statfs(path string, st *vfs.StatfsInfo, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fillStatfs(st)
	fs.complete(resume, 0)
}

func (fs *FS) Fstatfs(fd int64, st *vfs.StatfsInfo, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fillStatfs(st)
	fs.complete(resume, 0)
}

func fillStatfs(st *vfs.StatfsInfo) {
	*st = vfs.StatfsInfo{
		Bsize:   blockSize,
		Blocks:  1 << 20,
		Bfree:   1 << 19,
		Bavail:  1 << 19,
		Files:   1 << 16,
		Ffree:   1 << 15,
		Namelen: 255,
		Frsize:  blockSize,
	}
}

func (fs *FS) Chdir(path string, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, errno := fs.lookup(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if !n.isDir() {
		fs.complete(resume, neg(vfs.ENOTDIR))
		return
	}
	fs.cwd = path
	fs.complete(resume, 0)
}

func (fs *FS) Fchdir(fd int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if !f.n.isDir() {
		fs.complete(resume, neg(vfs.ENOTDIR))
		return
	}
	fs.cwd = f.path
	fs.complete(resume, 0)
}

func (fs *FS) Mknod(path string, mode uint32, dev int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if typ := mode &^ 0o7777; typ != 0 && typ != unix.S_IFREG {
		fs.complete(resume, neg(vfs.EPERM))
		return
	}
	parent, name, errno := fs.lookupParent(path)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	if _, ok := parent.children[name]; ok {
		fs.complete(resume, neg(vfs.EEXIST))
		return
	}
	parent.children[name] = newNode(path, name, false, mode)
	parent.mtime = time.Now()
	fs.complete(resume, 0)
}

func (fs *FS) Fcntl(fd int64, cmd int64, arg int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	switch cmd {
	case unix.F_GETFL:
		fs.complete(resume, int64(f.flags))
	case unix.F_SETFL:
		f.flags = (f.flags &^ vfs.O_APPEND) | (vfs.OpenFlags(arg) & vfs.O_APPEND)
		fs.complete(resume, 0)
	default:
		fs.complete(resume, 0)
	}
}

// Ioctl fails: memfs backs no devices.
func (fs *FS) Ioctl(fd int64, request int64, arg uintptr, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, neg(vfs.ENOTTY))
}

func (fs *FS) Sync(fd int64, resume vfs.ResumeErrno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
		fs.completeCode(resume, errno)
		return
	}
	fs.completeCode(resume, vfs.ESUCCESS)
}

func (fs *FS) Fdatasync(fd int64, resume vfs.ResumeLong) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
		fs.complete(resume, neg(errno))
		return
	}
	fs.complete(resume, 0)
}

func (fs *FS) FdstatGet(fd int64, st *vfs.Fdstat, resume vfs.ResumeErrno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, errno := fs.file(fd)
	if errno != vfs.ESUCCESS {
		fs.completeCode(resume, errno)
		return
	}
	*st = vfs.Fdstat{
		Filetype: f.n.fileType(),
		Flags:    uint32(f.flags),
	}
	fs.completeCode(resume, vfs.ESUCCESS)
}

func writeAt(data, buf []byte, off int64) []byte {
	if want := off + int64(len(buf)); want > int64(len(data)) {
		data = append(data, make([]byte, want-int64(len(data)))...)
	}
	copy(data[off:], buf)
	return data
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

var _ vfs.AsyncFS = (*FS)(nil)
