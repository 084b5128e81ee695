// Package dispatcher is the syscall front end of the shim. Each shim
// classifies its call by path prefix or descriptor provenance and routes
// it either through the bridge to the async backend or directly to the
// synchronous fallback filesystem.
package dispatcher

import (
	"github.com/zindlerb/bridgefs/pkg/bridge"
	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

type Dispatcher struct {
	prefix   string
	bridge   *bridge.Bridge
	backend  vfs.AsyncFS
	fallback vfs.SyncFS
	registry *FDRegistry
}

// New wires a dispatcher to an async backend and a fallback filesystem.
// The backend's Init primitive runs lazily, on the first bridged call.
func New(l *loop.Loop, backend vfs.AsyncFS, fallback vfs.SyncFS, prefix string) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	d := &Dispatcher{
		prefix:   prefix,
		backend:  backend,
		fallback: fallback,
		registry: NewFDRegistry(),
	}
	d.bridge = bridge.New(l, func(resume bridge.Resume) {
		backend.Init(func() { resume(bridge.Result{}) })
	})
	return d
}

// Registry exposes the backend descriptor set.
func (d *Dispatcher) Registry() *FDRegistry { return d.registry }

// Close shuts the bridge down. No syscall may be in flight.
func (d *Dispatcher) Close() { d.bridge.Close() }

func (d *Dispatcher) backendPath(path string) bool {
	return backendPath(d.prefix, path)
}

// runLong bridges a launcher around a long-returning backend primitive
// and splits the result into the POSIX convention.
func (d *Dispatcher) runLong(launch func(resume vfs.ResumeLong)) (int64, vfs.Errno) {
	res := d.bridge.Run(func(resume bridge.Resume) {
		launch(func(ret int64) { resume(bridge.Result{Long: ret}) })
	})
	if res.Long < 0 {
		return -1, vfs.Errno(-res.Long)
	}
	return res.Long, vfs.ESUCCESS
}

// runCode bridges a launcher around an errno-returning backend primitive.
func (d *Dispatcher) runCode(launch func(resume vfs.ResumeErrno)) (int64, vfs.Errno) {
	res := d.bridge.Run(func(resume bridge.Resume) {
		launch(func(code vfs.Errno) { resume(bridge.Result{Code: code}) })
	})
	if res.Code != vfs.ESUCCESS {
		return -1, res.Code
	}
	return 0, vfs.ESUCCESS
}

// Open routes on the path prefix. A backend descriptor is registered
// before Open returns, so FD-routed calls that race with the return
// already see it.
func (d *Dispatcher) Open(path string, flags vfs.OpenFlags, mode uint32) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("open", path, true)
		fd, errno := d.runLong(func(resume vfs.ResumeLong) {
			d.backend.Open(path, flags, mode, resume)
		})
		if errno == vfs.ESUCCESS {
			d.registry.Insert(fd)
		}
		return fd, errno
	}
	logPathOp("open", path, false)
	return d.fallback.Open(path, flags, mode)
}

// Close removes the descriptor from the registry only when the backend
// reports success; a failed close leaves it live for retry.
func (d *Dispatcher) Close(fd int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("close", fd, true)
		ret, errno := d.runCode(func(resume vfs.ResumeErrno) {
			d.backend.Close(fd, resume)
		})
		if errno == vfs.ESUCCESS {
			d.registry.Remove(fd)
		}
		return ret, errno
	}
	logFDOp("close", fd, false)
	return d.fallback.Close(fd)
}

// Rename is the only two-path operation. Both operands classify
// independently; straddling the backend boundary is refused.
func (d *Dispatcher) Rename(oldPath, newPath string) (int64, vfs.Errno) {
	oldBackend := d.backendPath(oldPath)
	newBackend := d.backendPath(newPath)
	switch {
	case oldBackend && newBackend:
		logPathOp("rename", oldPath, true)
		return d.runLong(func(resume vfs.ResumeLong) {
			d.backend.Rename(oldPath, newPath, resume)
		})
	case !oldBackend && !newBackend:
		logPathOp("rename", oldPath, false)
		return d.fallback.Rename(oldPath, newPath)
	default:
		return -1, vfs.EXDEV
	}
}

func (d *Dispatcher) Unlink(path string) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("unlink", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Unlink(path, resume) })
	}
	logPathOp("unlink", path, false)
	return d.fallback.Unlink(path)
}

func (d *Dispatcher) Mkdir(path string, mode uint32) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("mkdir", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Mkdir(path, mode, resume) })
	}
	logPathOp("mkdir", path, false)
	return d.fallback.Mkdir(path, mode)
}

func (d *Dispatcher) Rmdir(path string) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("rmdir", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Rmdir(path, resume) })
	}
	logPathOp("rmdir", path, false)
	return d.fallback.Rmdir(path)
}

func (d *Dispatcher) Chmod(path string, mode uint32) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("chmod", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Chmod(path, mode, resume) })
	}
	logPathOp("chmod", path, false)
	return d.fallback.Chmod(path, mode)
}

func (d *Dispatcher) Chown(path string, uid, gid int64) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("chown", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Chown(path, uid, gid, resume) })
	}
	logPathOp("chown", path, false)
	return d.fallback.Chown(path, uid, gid)
}

func (d *Dispatcher) Lchown(path string, uid, gid int64) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("lchown", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Lchown(path, uid, gid, resume) })
	}
	logPathOp("lchown", path, false)
	return d.fallback.Lchown(path, uid, gid)
}

func (d *Dispatcher) Access(path string, amode int64) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("access", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Access(path, amode, resume) })
	}
	logPathOp("access", path, false)
	return d.fallback.Access(path, amode)
}

func (d *Dispatcher) Readlink(path string, buf []byte) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("readlink", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Readlink(path, buf, resume) })
	}
	logPathOp("readlink", path, false)
	return d.fallback.Readlink(path, buf)
}

func (d *Dispatcher) Stat(path string, st *vfs.FileInfo) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("stat", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Stat(path, st, resume) })
	}
	logPathOp("stat", path, false)
	return d.fallback.Stat(path, st)
}

func (d *Dispatcher) Lstat(path string, st *vfs.FileInfo) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("lstat", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Lstat(path, st, resume) })
	}
	logPathOp("lstat", path, false)
	return d.fallback.Lstat(path, st)
}

func (d *Dispatcher) Statfs(path string, st *vfs.StatfsInfo) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("statfs", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Statfs(path, st, resume) })
	}
	logPathOp("statfs", path, false)
	return d.fallback.Statfs(path, st)
}

func (d *Dispatcher) Truncate(path string, size int64) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("truncate", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Truncate(path, size, resume) })
	}
	logPathOp("truncate", path, false)
	return d.fallback.Truncate(path, size)
}

func (d *Dispatcher) Chdir(path string) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("chdir", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Chdir(path, resume) })
	}
	logPathOp("chdir", path, false)
	return d.fallback.Chdir(path)
}

func (d *Dispatcher) Mknod(path string, mode uint32, dev int64) (int64, vfs.Errno) {
	if d.backendPath(path) {
		logPathOp("mknod", path, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Mknod(path, mode, dev, resume) })
	}
	logPathOp("mknod", path, false)
	return d.fallback.Mknod(path, mode, dev)
}

func (d *Dispatcher) Read(fd int64, buf []byte) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("read", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Read(fd, buf, resume) })
	}
	logFDOp("read", fd, false)
	return d.fallback.Read(fd, buf)
}

func (d *Dispatcher) Write(fd int64, buf []byte) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("write", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Write(fd, buf, resume) })
	}
	logFDOp("write", fd, false)
	return d.fallback.Write(fd, buf)
}

func (d *Dispatcher) Pread(fd int64, buf []byte, off int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("pread", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Pread(fd, buf, off, resume) })
	}
	logFDOp("pread", fd, false)
	return d.fallback.Pread(fd, buf, off)
}

func (d *Dispatcher) Pwrite(fd int64, buf []byte, off int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("pwrite", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Pwrite(fd, buf, off, resume) })
	}
	logFDOp("pwrite", fd, false)
	return d.fallback.Pwrite(fd, buf, off)
}

func (d *Dispatcher) Seek(fd int64, off int64, whence int) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("seek", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Seek(fd, off, whence, resume) })
	}
	logFDOp("seek", fd, false)
	return d.fallback.Seek(fd, off, whence)
}

func (d *Dispatcher) Fstat(fd int64, st *vfs.FileInfo) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fstat", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fstat(fd, st, resume) })
	}
	logFDOp("fstat", fd, false)
	return d.fallback.Fstat(fd, st)
}

func (d *Dispatcher) Fchmod(fd int64, mode uint32) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fchmod", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fchmod(fd, mode, resume) })
	}
	logFDOp("fchmod", fd, false)
	return d.fallback.Fchmod(fd, mode)
}

func (d *Dispatcher) Fchown(fd int64, uid, gid int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fchown", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fchown(fd, uid, gid, resume) })
	}
	logFDOp("fchown", fd, false)
	return d.fallback.Fchown(fd, uid, gid)
}

func (d *Dispatcher) Ftruncate(fd int64, size int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("ftruncate", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Ftruncate(fd, size, resume) })
	}
	logFDOp("ftruncate", fd, false)
	return d.fallback.Ftruncate(fd, size)
}

func (d *Dispatcher) Fallocate(fd int64, mode int64, off, length int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fallocate", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fallocate(fd, mode, off, length, resume) })
	}
	logFDOp("fallocate", fd, false)
	return d.fallback.Fallocate(fd, mode, off, length)
}

// Fcntl takes the single trailing variadic argument of the POSIX call as
// an explicit integer.
func (d *Dispatcher) Fcntl(fd int64, cmd int64, arg int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fcntl", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fcntl(fd, cmd, arg, resume) })
	}
	logFDOp("fcntl", fd, false)
	return d.fallback.Fcntl(fd, cmd, arg)
}

// Ioctl forwards the trailing argument verbatim as an opaque word.
func (d *Dispatcher) Ioctl(fd int64, request int64, arg uintptr) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("ioctl", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Ioctl(fd, request, arg, resume) })
	}
	logFDOp("ioctl", fd, false)
	return d.fallback.Ioctl(fd, request, arg)
}

func (d *Dispatcher) Getdents(fd int64, buf []byte) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("getdents", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Getdents(fd, buf, resume) })
	}
	logFDOp("getdents", fd, false)
	return d.fallback.Getdents(fd, buf)
}

func (d *Dispatcher) Fchdir(fd int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fchdir", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fchdir(fd, resume) })
	}
	logFDOp("fchdir", fd, false)
	return d.fallback.Fchdir(fd)
}

func (d *Dispatcher) Fdatasync(fd int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fdatasync", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fdatasync(fd, resume) })
	}
	logFDOp("fdatasync", fd, false)
	return d.fallback.Fdatasync(fd)
}

func (d *Dispatcher) Fstatfs(fd int64, st *vfs.StatfsInfo) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fstatfs", fd, true)
		return d.runLong(func(resume vfs.ResumeLong) { d.backend.Fstatfs(fd, st, resume) })
	}
	logFDOp("fstatfs", fd, false)
	return d.fallback.Fstatfs(fd, st)
}

func (d *Dispatcher) Sync(fd int64) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("sync", fd, true)
		return d.runCode(func(resume vfs.ResumeErrno) { d.backend.Sync(fd, resume) })
	}
	logFDOp("sync", fd, false)
	return d.fallback.Sync(fd)
}

func (d *Dispatcher) FdstatGet(fd int64, st *vfs.Fdstat) (int64, vfs.Errno) {
	if d.registry.Contains(fd) {
		logFDOp("fdstat_get", fd, true)
		return d.runCode(func(resume vfs.ResumeErrno) { d.backend.FdstatGet(fd, st, resume) })
	}
	logFDOp("fdstat_get", fd, false)
	return d.fallback.FdstatGet(fd, st)
}
