package vfs

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Errno is the error set shared by the async backend and the dispatcher.
// Values are numerically identical to the host errno values, so a backend
// result can be returned through the POSIX convention without translation.
// The zero value means success.
type Errno uint32

const (
	ESUCCESS     Errno = 0
	EPERM              = Errno(unix.EPERM)
	ENOENT             = Errno(unix.ENOENT)
	EINTR              = Errno(unix.EINTR)
	EIO                = Errno(unix.EIO)
	ENXIO              = Errno(unix.ENXIO)
	EBADF              = Errno(unix.EBADF)
	EAGAIN             = Errno(unix.EAGAIN)
	ENOMEM             = Errno(unix.ENOMEM)
	EACCES             = Errno(unix.EACCES)
	EFAULT             = Errno(unix.EFAULT)
	EBUSY              = Errno(unix.EBUSY)
	EEXIST             = Errno(unix.EEXIST)
	EXDEV              = Errno(unix.EXDEV)
	ENODEV             = Errno(unix.ENODEV)
	ENOTDIR            = Errno(unix.ENOTDIR)
	EISDIR             = Errno(unix.EISDIR)
	EINVAL             = Errno(unix.EINVAL)
	ENFILE             = Errno(unix.ENFILE)
	EMFILE             = Errno(unix.EMFILE)
	ENOTTY             = Errno(unix.ENOTTY)
	EFBIG              = Errno(unix.EFBIG)
	ENOSPC             = Errno(unix.ENOSPC)
	ESPIPE             = Errno(unix.ESPIPE)
	EROFS              = Errno(unix.EROFS)
	ENAMETOOLONG       = Errno(unix.ENAMETOOLONG)
	ENOSYS             = Errno(unix.ENOSYS)
	ENOTEMPTY          = Errno(unix.ENOTEMPTY)
	ELOOP              = Errno(unix.ELOOP)
	EOVERFLOW          = Errno(unix.EOVERFLOW)
	EOPNOTSUPP         = Errno(unix.EOPNOTSUPP)
)

func (e Errno) Error() string {
	if e == ESUCCESS {
		return "ESUCCESS"
	}
	if name := unix.ErrnoName(syscall.Errno(e)); name != "" {
		return name
	}
	return fmt.Sprintf("errno(%d)", uint32(e))
}

// ErrnoFromError maps a Go error onto the shared error set.
func ErrnoFromError(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return Errno(errno)
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ENOENT
	case errors.Is(err, os.ErrExist):
		return EEXIST
	case errors.Is(err, os.ErrPermission):
		return EACCES
	}
	return EIO
}
