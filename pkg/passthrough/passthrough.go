// Package passthrough is the synchronous fallback filesystem: path
// operations run against the host OS under a root directory, descriptor
// operations go straight to the kernel.
package passthrough

import (
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/zindlerb/bridgefs/pkg/vfs"
)

type FS struct {
	root string
}

// New returns a fallback rooted at root. An empty root means paths are
// used as given.
func New(root string) *FS {
	return &FS{root: root}
}

func (fs *FS) realPath(path string) string {
	if fs.root == "" {
		return path
	}
	return filepath.Join(fs.root, path)
}

func errnoOf(err error) vfs.Errno {
	if err == nil {
		return vfs.ESUCCESS
	}
	if errno, ok := err.(syscall.Errno); ok {
		return vfs.Errno(errno)
	}
	return vfs.EIO
}

// ret converts the error of a zero-returning call to the POSIX pair.
func ret(err error) (int64, vfs.Errno) {
	if err != nil {
		return -1, errnoOf(err)
	}
	return 0, vfs.ESUCCESS
}

func retN(n int, err error) (int64, vfs.Errno) {
	if err != nil {
		return -1, errnoOf(err)
	}
	return int64(n), vfs.ESUCCESS
}

func (fs *FS) Open(path string, flags vfs.OpenFlags, mode uint32) (int64, vfs.Errno) {
	fd, err := unix.Open(fs.realPath(path), int(flags), mode)
	return retN(fd, err)
}

func (fs *FS) Close(fd int64) (int64, vfs.Errno) {
	return ret(unix.Close(int(fd)))
}

func (fs *FS) Read(fd int64, buf []byte) (int64, vfs.Errno) {
	return retN(unix.Read(int(fd), buf))
}

func (fs *FS) Write(fd int64, buf []byte) (int64, vfs.Errno) {
	return retN(unix.Write(int(fd), buf))
}

func (fs *FS) Pread(fd int64, buf []byte, off int64) (int64, vfs.Errno) {
	return retN(unix.Pread(int(fd), buf, off))
}

func (fs *FS) Pwrite(fd int64, buf []byte, off int64) (int64, vfs.Errno) {
	return retN(unix.Pwrite(int(fd), buf, off))
}

func (fs *FS) Seek(fd int64, off int64, whence int) (int64, vfs.Errno) {
	pos, err := unix.Seek(int(fd), off, whence)
	if err != nil {
		return -1, errnoOf(err)
	}
	return pos, vfs.ESUCCESS
}

func (fs *FS) Fstat(fd int64, st *vfs.FileInfo) (int64, vfs.Errno) {
	var stat unix.Stat_t
	if err := unix.Fstat(int(fd), &stat); err != nil {
		return -1, errnoOf(err)
	}
	*st = *vfs.FileInfoFromStat("", &stat)
	return 0, vfs.ESUCCESS
}

func (fs *FS) Stat(path string, st *vfs.FileInfo) (int64, vfs.Errno) {
	var stat unix.Stat_t
	if err := unix.Stat(fs.realPath(path), &stat); err != nil {
		return -1, errnoOf(err)
	}
	*st = *vfs.FileInfoFromStat(filepath.Base(path), &stat)
	return 0, vfs.ESUCCESS
}

func (fs *FS) Lstat(path string, st *vfs.FileInfo) (int64, vfs.Errno) {
	var stat unix.Stat_t
	if err := unix.Lstat(fs.realPath(path), &stat); err != nil {
		return -1, errnoOf(err)
	}
	*st = *vfs.FileInfoFromStat(filepath.Base(path), &stat)
	return 0, vfs.ESUCCESS
}

func (fs *FS) Unlink(path string) (int64, vfs.Errno) {
	return ret(unix.Unlink(fs.realPath(path)))
}

func (fs *FS) Mkdir(path string, mode uint32) (int64, vfs.Errno) {
	return ret(unix.Mkdir(fs.realPath(path), mode))
}

func (fs *FS) Rmdir(path string) (int64, vfs.Errno) {
	return ret(unix.Rmdir(fs.realPath(path)))
}

func (fs *FS) Chmod(path string, mode uint32) (int64, vfs.Errno) {
	return ret(unix.Chmod(fs.realPath(path), mode))
}

func (fs *FS) Fchmod(fd int64, mode uint32) (int64, vfs.Errno) {
	return ret(unix.Fchmod(int(fd), mode))
}

func (fs *FS) Chown(path string, uid, gid int64) (int64, vfs.Errno) {
	return ret(unix.Chown(fs.realPath(path), int(uid), int(gid)))
}

func (fs *FS) Lchown(path string, uid, gid int64) (int64, vfs.Errno) {
	return ret(unix.Lchown(fs.realPath(path), int(uid), int(gid)))
}

func (fs *FS) Fchown(fd int64, uid, gid int64) (int64, vfs.Errno) {
	return ret(unix.Fchown(int(fd), int(uid), int(gid)))
}

func (fs *FS) Access(path string, amode int64) (int64, vfs.Errno) {
	return ret(unix.Access(fs.realPath(path), uint32(amode)))
}

func (fs *FS) Readlink(path string, buf []byte) (int64, vfs.Errno) {
	return retN(unix.Readlink(fs.realPath(path), buf))
}

func (fs *FS) Truncate(path string, size int64) (int64, vfs.Errno) {
	return ret(unix.Truncate(fs.realPath(path), size))
}

func (fs *FS) Ftruncate(fd int64, size int64) (int64, vfs.Errno) {
	return ret(unix.Ftruncate(int(fd), size))
}

func (fs *FS) Fallocate(fd int64, mode int64, off, length int64) (int64, vfs.Errno) {
	return ret(unix.Fallocate(int(fd), uint32(mode), off, length))
}

func (fs *FS) Rename(oldPath, newPath string) (int64, vfs.Errno) {
	return ret(unix.Rename(fs.realPath(oldPath), fs.realPath(newPath)))
}

func (fs *FS) Chdir(path string) (int64, vfs.Errno) {
	return ret(unix.Chdir(fs.realPath(path)))
}

func (fs *FS) Fchdir(fd int64) (int64, vfs.Errno) {
	return ret(unix.Fchdir(int(fd)))
}

func (fs *FS) Mknod(path string, mode uint32, dev int64) (int64, vfs.Errno) {
	return ret(unix.Mknod(fs.realPath(path), mode, int(dev)))
}

func (fs *FS) Statfs(path string, st *vfs.StatfsInfo) (int64, vfs.Errno) {
	var stat unix.Statfs_t
	if err := unix.Statfs(fs.realPath(path), &stat); err != nil {
		return -1, errnoOf(err)
	}
	fillStatfs(st, &stat)
	return 0, vfs.ESUCCESS
}

func (fs *FS) Fstatfs(fd int64, st *vfs.StatfsInfo) (int64, vfs.Errno) {
	var stat unix.Statfs_t
	if err := unix.Fstatfs(int(fd), &stat); err != nil {
		return -1, errnoOf(err)
	}
	fillStatfs(st, &stat)
	return 0, vfs.ESUCCESS
}

func fillStatfs(st *vfs.StatfsInfo, stat *unix.Statfs_t) {
	*st = vfs.StatfsInfo{
		Type:    int64(stat.Type),
		Bsize:   int64(stat.Bsize),
		Blocks:  stat.Blocks,
		Bfree:   stat.Bfree,
		Bavail:  stat.Bavail,
		Files:   stat.Files,
		Ffree:   stat.Ffree,
		Namelen: int64(stat.Namelen),
		Frsize:  int64(stat.Frsize),
		Flags:   int64(stat.Flags),
	}
}

func (fs *FS) Getdents(fd int64, buf []byte) (int64, vfs.Errno) {
	return retN(unix.Getdents(int(fd), buf))
}

func (fs *FS) Fcntl(fd int64, cmd int64, arg int64) (int64, vfs.Errno) {
	res, err := unix.FcntlInt(uintptr(fd), int(cmd), int(arg))
	return retN(res, err)
}

func (fs *FS) Ioctl(fd int64, request int64, arg uintptr) (int64, vfs.Errno) {
	res, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), arg)
	if errno != 0 {
		return -1, vfs.Errno(errno)
	}
	return int64(res), vfs.ESUCCESS
}

func (fs *FS) Sync(fd int64) (int64, vfs.Errno) {
	return ret(unix.Fsync(int(fd)))
}

func (fs *FS) Fdatasync(fd int64) (int64, vfs.Errno) {
	return ret(unix.Fdatasync(int(fd)))
}

func (fs *FS) FdstatGet(fd int64, st *vfs.Fdstat) (int64, vfs.Errno) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return -1, errnoOf(err)
	}
	var stat unix.Stat_t
	if err := unix.Fstat(int(fd), &stat); err != nil {
		return -1, errnoOf(err)
	}
	filetype := vfs.DTReg
	if stat.Mode&unix.S_IFDIR != 0 {
		filetype = vfs.DTDir
	}
	*st = vfs.Fdstat{Filetype: filetype, Flags: uint32(flags)}
	return 0, vfs.ESUCCESS
}

var _ vfs.SyncFS = (*FS)(nil)
