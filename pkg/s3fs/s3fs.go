// Package s3fs implements the async backend contract over an S3 bucket.
// Objects are buffered whole in memory between open and close; a dirty
// buffer is uploaded when the descriptor closes. Directories are
// zero-byte marker objects with a trailing slash.
package s3fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	pathpkg "path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sys/unix"

	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

// DefaultFDBase keeps s3fs descriptors out of the host OS range.
const DefaultFDBase = 1 << 20

// Client is the subset of the S3 API the backend calls. *s3.Client
// satisfies it; tests substitute a fake.
type Client interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type uploaderClient interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type openFile struct {
	key    string
	data   []byte
	flags  vfs.OpenFlags
	off    int64
	dirty  bool
	isDir  bool
	dirPos int
}

type FS struct {
	loop   *loop.Loop
	bucket string
	prefix string

	mu       sync.Mutex
	client   Client
	uploader uploaderClient
	files    map[int64]*openFile
	nextFD   int64
	inits    int
}

// New builds a backend over bucket. prefix is the key prefix all paths
// map under; fdBase is where descriptor numbering starts.
func New(l *loop.Loop, client Client, bucket, prefix string, fdBase int64) *FS {
	if fdBase <= 0 {
		fdBase = DefaultFDBase
	}
	return &FS{
		loop:     l,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
		files:    make(map[int64]*openFile),
		nextFD:   fdBase,
	}
}

// filekey converts a shim path to the object key.
func (fs *FS) filekey(path string) string {
	path = pathpkg.Clean("/" + path)
	return strings.TrimPrefix(pathpkg.Join(fs.prefix, path), "/")
}

func (fs *FS) dirkey(path string) string {
	key := fs.filekey(path)
	if key == "" {
		return ""
	}
	return key + "/"
}

func errnoFromS3(err error) vfs.Errno {
	if err == nil {
		return vfs.ESUCCESS
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return vfs.ENOENT
		case http.StatusForbidden:
			return vfs.EACCES
		}
	}
	return vfs.EIO
}

func neg(errno vfs.Errno) int64 { return -int64(errno) }

// async runs op on a worker goroutine and delivers its result on the
// event loop, keeping the loop free while the request is in flight.
func (fs *FS) async(op func() int64, resume vfs.ResumeLong) {
	go func() {
		ret := op()
		fs.loop.Schedule(func() { resume(ret) })
	}()
}

func (fs *FS) asyncCode(op func() vfs.Errno, resume vfs.ResumeErrno) {
	go func() {
		code := op()
		fs.loop.Schedule(func() { resume(code) })
	}()
}

func (fs *FS) Init(resume func()) {
	fs.mu.Lock()
	fs.inits++
	fs.mu.Unlock()
	fs.loop.Schedule(resume)
}

// InitCount reports how many times Init has run.
func (fs *FS) InitCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.inits
}

// head classifies a path as file, directory or absent.
func (fs *FS) head(ctx context.Context, path string) (size int64, isDir bool, errno vfs.Errno) {
	out, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.filekey(path)),
	})
	if err == nil {
		return aws.ToInt64(out.ContentLength), false, vfs.ESUCCESS
	}
	if errnoFromS3(err) != vfs.ENOENT {
		return 0, false, errnoFromS3(err)
	}
	// A directory exists if its marker or any child does.
	list, err := fs.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(fs.bucket),
		Prefix:  aws.String(fs.dirkey(path)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return 0, false, errnoFromS3(err)
	}
	if len(list.Contents) > 0 || len(list.CommonPrefixes) > 0 {
		return 0, true, vfs.ESUCCESS
	}
	return 0, false, vfs.ENOENT
}

func (fs *FS) Open(path string, flags vfs.OpenFlags, mode uint32, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		f := &openFile{key: fs.filekey(path), flags: flags}

		_, isDir, errno := fs.head(ctx, path)
		switch {
		case errno == vfs.ESUCCESS && isDir:
			if flags.IsWrite() {
				return neg(vfs.EISDIR)
			}
			f.isDir = true
		case errno == vfs.ESUCCESS:
			if flags.IsCreate() && flags&vfs.O_EXCL != 0 {
				return neg(vfs.EEXIST)
			}
			if !flags.IsTrunc() {
				out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
					Bucket: aws.String(fs.bucket),
					Key:    aws.String(f.key),
				})
				if err != nil {
					return neg(errnoFromS3(err))
				}
				data, err := io.ReadAll(out.Body)
				out.Body.Close()
				if err != nil {
					return neg(vfs.EIO)
				}
				f.data = data
			} else {
				f.dirty = true
			}
		case errno == vfs.ENOENT && flags.IsCreate():
			f.dirty = true
		default:
			return neg(errno)
		}

		fs.mu.Lock()
		fd := fs.nextFD
		fs.nextFD++
		fs.files[fd] = f
		fs.mu.Unlock()
		return fd
	}, resume)
}

func (fs *FS) Close(fd int64, resume vfs.ResumeErrno) {
	fs.asyncCode(func() vfs.Errno {
		fs.mu.Lock()
		f, ok := fs.files[fd]
		fs.mu.Unlock()
		if !ok {
			return vfs.EBADF
		}
		if f.dirty && !f.isDir {
			_, err := fs.uploader.Upload(context.Background(), &s3.PutObjectInput{
				Bucket: aws.String(fs.bucket),
				Key:    aws.String(f.key),
				Body:   bytes.NewReader(f.data),
			})
			if err != nil {
				// Keep the descriptor live so the caller can retry.
				return errnoFromS3(err)
			}
		}
		fs.mu.Lock()
		delete(fs.files, fd)
		fs.mu.Unlock()
		return vfs.ESUCCESS
	}, resume)
}

func (fs *FS) file(fd int64) (*openFile, vfs.Errno) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.files[fd]
	if !ok {
		return nil, vfs.EBADF
	}
	return f, vfs.ESUCCESS
}

func (fs *FS) Read(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.isDir {
			return neg(vfs.EISDIR)
		}
		if f.off >= int64(len(f.data)) {
			return 0
		}
		n := copy(buf, f.data[f.off:])
		f.off += int64(n)
		return int64(n)
	}, resume)
}

func (fs *FS) Write(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.isDir {
			return neg(vfs.EISDIR)
		}
		if f.flags&vfs.O_APPEND != 0 {
			f.off = int64(len(f.data))
		}
		f.data = writeAt(f.data, buf, f.off)
		f.off += int64(len(buf))
		f.dirty = true
		return int64(len(buf))
	}, resume)
}

func (fs *FS) Pread(fd int64, buf []byte, off int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.isDir {
			return neg(vfs.EISDIR)
		}
		if off < 0 {
			return neg(vfs.EINVAL)
		}
		if off >= int64(len(f.data)) {
			return 0
		}
		return int64(copy(buf, f.data[off:]))
	}, resume)
}

func (fs *FS) Pwrite(fd int64, buf []byte, off int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.isDir {
			return neg(vfs.EISDIR)
		}
		if off < 0 {
			return neg(vfs.EINVAL)
		}
		f.data = writeAt(f.data, buf, off)
		f.dirty = true
		return int64(len(buf))
	}, resume)
}

func (fs *FS) Seek(fd int64, off int64, whence int, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		var base int64
		switch whence {
		case vfs.SeekSet:
		case vfs.SeekCur:
			base = f.off
		case vfs.SeekEnd:
			base = int64(len(f.data))
		default:
			return neg(vfs.EINVAL)
		}
		pos := base + off
		if pos < 0 {
			return neg(vfs.EINVAL)
		}
		f.off = pos
		return pos
	}, resume)
}

func (fs *FS) Getdents(fd int64, buf []byte, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if !f.isDir {
			return neg(vfs.ENOTDIR)
		}

		names, errno := fs.list(context.Background(), f.key+"/")
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		entries := make([]vfs.DirEntry, 0, len(names)+2)
		entries = append(entries,
			vfs.DirEntry{Name: ".", Type: vfs.DTDir},
			vfs.DirEntry{Name: "..", Type: vfs.DTDir},
		)
		entries = append(entries, names...)
		for i := range entries {
			entries[i].Offset = int64(i + 1)
		}

		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.dirPos >= len(entries) {
			return 0
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
			return neg(vfs.EINVAL)
		}
		return int64(off)
	}, resume)
}

// list returns the immediate children of an object-key prefix.
func (fs *FS) list(ctx context.Context, prefix string) ([]vfs.DirEntry, vfs.Errno) {
	var entries []vfs.DirEntry
	var token *string
	for {
		out, err := fs.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(fs.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, errnoFromS3(err)
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue // the directory's own marker
			}
			entries = append(entries, vfs.DirEntry{Name: name, Type: vfs.DTReg})
		}
		for _, p := range out.CommonPrefixes {
			name := pathpkg.Base(strings.TrimSuffix(aws.ToString(p.Prefix), "/"))
			entries = append(entries, vfs.DirEntry{Name: name, Type: vfs.DTDir})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, vfs.ESUCCESS
}

func (fs *FS) Unlink(path string, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		_, isDir, errno := fs.head(ctx, path)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if isDir {
			return neg(vfs.EISDIR)
		}
		if _, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(fs.filekey(path)),
		}); err != nil {
			return neg(errnoFromS3(err))
		}
		return 0
	}, resume)
}

func (fs *FS) Mkdir(path string, mode uint32, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		if _, _, errno := fs.head(ctx, path); errno == vfs.ESUCCESS {
			return neg(vfs.EEXIST)
		}
		_, err := fs.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(fs.dirkey(path)),
			Body:   strings.NewReader(""),
		})
		if err != nil {
			return neg(errnoFromS3(err))
		}
		return 0
	}, resume)
}

func (fs *FS) Rmdir(path string, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		_, isDir, errno := fs.head(ctx, path)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if !isDir {
			return neg(vfs.ENOTDIR)
		}
		children, errno := fs.list(ctx, fs.dirkey(path))
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if len(children) > 0 {
			return neg(vfs.ENOTEMPTY)
		}
		if _, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(fs.dirkey(path)),
		}); err != nil {
			return neg(errnoFromS3(err))
		}
		return 0
	}, resume)
}

func (fs *FS) Rename(oldPath, newPath string, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		_, isDir, errno := fs.head(ctx, oldPath)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if isDir {
			// Renaming directory markers would orphan children.
			return neg(vfs.EOPNOTSUPP)
		}
		oldKey := fs.filekey(oldPath)
		newKey := fs.filekey(newPath)
		if _, err := fs.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(fs.bucket),
			CopySource: aws.String(fs.bucket + "/" + oldKey),
			Key:        aws.String(newKey),
		}); err != nil {
			return neg(errnoFromS3(err))
		}
		if _, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(oldKey),
		}); err != nil {
			return neg(errnoFromS3(err))
		}
		return 0
	}, resume)
}

func (fs *FS) Stat(path string, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		size, isDir, errno := fs.head(context.Background(), path)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		mode := uint32(0o644) | s_IFREG
		if isDir {
			mode = uint32(0o755) | s_IFDIR
		}
		*st = vfs.FileInfo{
			Name:    pathpkg.Base(path),
			Size:    size,
			Mode:    mode,
			ModTime: time.Now(),
			IsDir:   isDir,
			Nlink:   1,
			Blksize: 4096,
		}
		return 0
	}, resume)
}

// Lstat matches Stat; S3 stores no symbolic links.
func (fs *FS) Lstat(path string, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.Stat(path, st, resume)
}

func (fs *FS) Fstat(fd int64, st *vfs.FileInfo, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		mode := uint32(0o644) | s_IFREG
		if f.isDir {
			mode = uint32(0o755) | s_IFDIR
		}
		*st = vfs.FileInfo{
			Name:    pathpkg.Base(f.key),
			Size:    int64(len(f.data)),
			Mode:    mode,
			ModTime: time.Now(),
			IsDir:   f.isDir,
			Nlink:   1,
			Blksize: 4096,
		}
		return 0
	}, resume)
}

func (fs *FS) Truncate(path string, size int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		ctx := context.Background()
		out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(fs.filekey(path)),
		})
		if err != nil {
			return neg(errnoFromS3(err))
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return neg(vfs.EIO)
		}
		data = resize(data, size)
		if _, err := fs.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(fs.bucket),
			Key:    aws.String(fs.filekey(path)),
			Body:   bytes.NewReader(data),
		}); err != nil {
			return neg(errnoFromS3(err))
		}
		return 0
	}, resume)
}

func (fs *FS) Ftruncate(fd int64, size int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if f.isDir {
			return neg(vfs.EISDIR)
		}
		if size < 0 {
			return neg(vfs.EINVAL)
		}
		f.data = resize(f.data, size)
		f.dirty = true
		return 0
	}, resume)
}

func (fs *FS) Fallocate(fd int64, mode int64, off, length int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if off < 0 || length <= 0 || mode != 0 {
			return neg(vfs.EINVAL)
		}
		if want := off + length; want > int64(len(f.data)) {
			f.data = resize(f.data, want)
			f.dirty = true
		}
		return 0
	}, resume)
}

func (fs *FS) Access(path string, amode int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, _, errno := fs.head(context.Background(), path); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		return 0
	}, resume)
}

// Chmod is accepted and dropped: object stores carry no mode bits.
func (fs *FS) Chmod(path string, mode uint32, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, _, errno := fs.head(context.Background(), path); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		return 0
	}, resume)
}

func (fs *FS) Chown(path string, uid, gid int64, resume vfs.ResumeLong) {
	fs.Chmod(path, 0, resume)
}

func (fs *FS) Lchown(path string, uid, gid int64, resume vfs.ResumeLong) {
	fs.Chmod(path, 0, resume)
}

func (fs *FS) Fchmod(fd int64, mode uint32, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		return 0
	}, resume)
}

func (fs *FS) Fchown(fd int64, uid, gid int64, resume vfs.ResumeLong) {
	fs.Fchmod(fd, 0, resume)
}

func (fs *FS) Readlink(path string, buf []byte, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, _, errno := fs.head(context.Background(), path); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		return neg(vfs.EINVAL)
	}, resume)
}

func (fs *FS) Statfs(path string, st *vfs.StatfsInfo, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		fillStatfs(st)
		return 0
	}, resume)
}

func (fs *FS) Fstatfs(fd int64, st *vfs.StatfsInfo, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fillStatfs(st)
		return 0
	}, resume)
}

func fillStatfs(st *vfs.StatfsInfo) {
	*st = vfs.StatfsInfo{
		Bsize:   4096,
		Blocks:  1 << 30,
		Bfree:   1 << 30,
		Bavail:  1 << 30,
		Namelen: 1024,
		Frsize:  4096,
	}
}

func (fs *FS) Chdir(path string, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		_, isDir, errno := fs.head(context.Background(), path)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if !isDir {
			return neg(vfs.ENOTDIR)
		}
		return 0
	}, resume)
}

func (fs *FS) Fchdir(fd int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		if !f.isDir {
			return neg(vfs.ENOTDIR)
		}
		return 0
	}, resume)
}

func (fs *FS) Mknod(path string, mode uint32, dev int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		return neg(vfs.EPERM)
	}, resume)
}

func (fs *FS) Fcntl(fd int64, cmd int64, arg int64, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return neg(errno)
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if cmd == unix.F_GETFL {
			return int64(f.flags)
		}
		return 0
	}, resume)
}

func (fs *FS) Ioctl(fd int64, request int64, arg uintptr, resume vfs.ResumeLong) {
	fs.async(func() int64 {
		if _, errno := fs.file(fd); errno != vfs.ESUCCESS {
			return neg(errno)
		}
		return neg(vfs.ENOTTY)
	}, resume)
}

func (fs *FS) Sync(fd int64, resume vfs.ResumeErrno) {
	fs.asyncCode(func() vfs.Errno {
		fs.mu.Lock()
		f, ok := fs.files[fd]
		fs.mu.Unlock()
		if !ok {
			return vfs.EBADF
		}
		if f.dirty && !f.isDir {
			if _, err := fs.uploader.Upload(context.Background(), &s3.PutObjectInput{
				Bucket: aws.String(fs.bucket),
				Key:    aws.String(f.key),
				Body:   bytes.NewReader(f.data),
			}); err != nil {
				return errnoFromS3(err)
			}
			fs.mu.Lock()
			f.dirty = false
			fs.mu.Unlock()
		}
		return vfs.ESUCCESS
	}, resume)
}

func (fs *FS) Fdatasync(fd int64, resume vfs.ResumeLong) {
	fs.Sync(fd, func(code vfs.Errno) {
		if code != vfs.ESUCCESS {
			resume(neg(code))
			return
		}
		resume(0)
	})
}

func (fs *FS) FdstatGet(fd int64, st *vfs.Fdstat, resume vfs.ResumeErrno) {
	fs.asyncCode(func() vfs.Errno {
		f, errno := fs.file(fd)
		if errno != vfs.ESUCCESS {
			return errno
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		filetype := vfs.DTReg
		if f.isDir {
			filetype = vfs.DTDir
		}
		*st = vfs.Fdstat{Filetype: filetype, Flags: uint32(f.flags)}
		return vfs.ESUCCESS
	}, resume)
}

const (
	s_IFREG = uint32(unix.S_IFREG)
	s_IFDIR = uint32(unix.S_IFDIR)
)

func writeAt(data, buf []byte, off int64) []byte {
	if want := off + int64(len(buf)); want > int64(len(data)) {
		data = append(data, make([]byte, want-int64(len(data)))...)
	}
	copy(data[off:], buf)
	return data
}

func resize(data []byte, size int64) []byte {
	if size <= int64(len(data)) {
		return data[:size]
	}
	return append(data, make([]byte, size-int64(len(data)))...)
}

var _ vfs.AsyncFS = (*FS)(nil)
