package vfs

// SyncFS is the synchronous fallback filesystem. It covers the same
// operations as AsyncFS with the POSIX return convention: (-1, errno) on
// failure, (result, ESUCCESS) otherwise. It may be called from any
// goroutine.
type SyncFS interface {
	Open(path string, flags OpenFlags, mode uint32) (int64, Errno)
	Unlink(path string) (int64, Errno)
	Mkdir(path string, mode uint32) (int64, Errno)
	Rmdir(path string) (int64, Errno)
	Chmod(path string, mode uint32) (int64, Errno)
	Chown(path string, uid, gid int64) (int64, Errno)
	Lchown(path string, uid, gid int64) (int64, Errno)
	Access(path string, amode int64) (int64, Errno)
	Readlink(path string, buf []byte) (int64, Errno)
	Stat(path string, st *FileInfo) (int64, Errno)
	Lstat(path string, st *FileInfo) (int64, Errno)
	Statfs(path string, st *StatfsInfo) (int64, Errno)
	Truncate(path string, size int64) (int64, Errno)
	Chdir(path string) (int64, Errno)
	Mknod(path string, mode uint32, dev int64) (int64, Errno)
	Rename(oldPath, newPath string) (int64, Errno)

	Read(fd int64, buf []byte) (int64, Errno)
	Write(fd int64, buf []byte) (int64, Errno)
	Pread(fd int64, buf []byte, off int64) (int64, Errno)
	Pwrite(fd int64, buf []byte, off int64) (int64, Errno)
	Seek(fd int64, off int64, whence int) (int64, Errno)
	Fstat(fd int64, st *FileInfo) (int64, Errno)
	Fchmod(fd int64, mode uint32) (int64, Errno)
	Fchown(fd int64, uid, gid int64) (int64, Errno)
	Ftruncate(fd int64, size int64) (int64, Errno)
	Fallocate(fd int64, mode int64, off, length int64) (int64, Errno)
	Fcntl(fd int64, cmd int64, arg int64) (int64, Errno)
	Ioctl(fd int64, request int64, arg uintptr) (int64, Errno)
	Getdents(fd int64, buf []byte) (int64, Errno)
	Fchdir(fd int64) (int64, Errno)
	Fdatasync(fd int64) (int64, Errno)
	Fstatfs(fd int64, st *StatfsInfo) (int64, Errno)

	Close(fd int64) (int64, Errno)
	Sync(fd int64) (int64, Errno)
	FdstatGet(fd int64, st *Fdstat) (int64, Errno)
}
