package vfs

// ResumeLong delivers a syscall-style result: a non-negative value on
// success, or a negated errno on failure.
type ResumeLong func(ret int64)

// ResumeErrno delivers a backend-style result code; ESUCCESS on success.
type ResumeErrno func(code Errno)

// AsyncFS is the contract of an asynchronous storage backend. Every
// primitive may only be invoked from the event-loop goroutine, must not
// block it, and must arrange for its resume callback to be invoked
// exactly once, also from the event-loop goroutine, when the operation
// completes. Buffers and out-parameters are owned by the submitting
// thread and stay valid until resume is called.
//
// Paths are forward-slash separated and keep their backend prefix; "."
// and ".." components are resolved by the backend. Descriptors issued by
// Open must not collide with those of the fallback filesystem.
type AsyncFS interface {
	// Init performs the one-time backend setup. The bridge invokes it
	// lazily, before the first forwarded operation.
	Init(resume func())

	Open(path string, flags OpenFlags, mode uint32, resume ResumeLong)
	Unlink(path string, resume ResumeLong)
	Mkdir(path string, mode uint32, resume ResumeLong)
	Rmdir(path string, resume ResumeLong)
	Chmod(path string, mode uint32, resume ResumeLong)
	Chown(path string, uid, gid int64, resume ResumeLong)
	Lchown(path string, uid, gid int64, resume ResumeLong)
	Access(path string, amode int64, resume ResumeLong)
	Readlink(path string, buf []byte, resume ResumeLong)
	Stat(path string, st *FileInfo, resume ResumeLong)
	Lstat(path string, st *FileInfo, resume ResumeLong)
	Statfs(path string, st *StatfsInfo, resume ResumeLong)
	Truncate(path string, size int64, resume ResumeLong)
	Chdir(path string, resume ResumeLong)
	Mknod(path string, mode uint32, dev int64, resume ResumeLong)
	Rename(oldPath, newPath string, resume ResumeLong)

	Read(fd int64, buf []byte, resume ResumeLong)
	Write(fd int64, buf []byte, resume ResumeLong)
	Pread(fd int64, buf []byte, off int64, resume ResumeLong)
	Pwrite(fd int64, buf []byte, off int64, resume ResumeLong)
	Seek(fd int64, off int64, whence int, resume ResumeLong)
	Fstat(fd int64, st *FileInfo, resume ResumeLong)
	Fchmod(fd int64, mode uint32, resume ResumeLong)
	Fchown(fd int64, uid, gid int64, resume ResumeLong)
	Ftruncate(fd int64, size int64, resume ResumeLong)
	Fallocate(fd int64, mode int64, off, length int64, resume ResumeLong)
	Fcntl(fd int64, cmd int64, arg int64, resume ResumeLong)
	Ioctl(fd int64, request int64, arg uintptr, resume ResumeLong)
	Getdents(fd int64, buf []byte, resume ResumeLong)
	Fchdir(fd int64, resume ResumeLong)
	Fdatasync(fd int64, resume ResumeLong)
	Fstatfs(fd int64, st *StatfsInfo, resume ResumeLong)

	Close(fd int64, resume ResumeErrno)
	Sync(fd int64, resume ResumeErrno)
	FdstatGet(fd int64, st *Fdstat, resume ResumeErrno)
}
