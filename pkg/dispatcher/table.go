package dispatcher

// RouteKind says what a shim inspects to pick a route.
type RouteKind int

const (
	// RoutePath routes on the first path component.
	RoutePath RouteKind = iota
	// RouteFD routes on registry membership of the descriptor.
	RouteFD
	// RouteTwoPath classifies both operands independently; mixed
	// routing is refused with EXDEV.
	RouteTwoPath
)

// ResultKind says how the backend reports the operation's outcome.
type ResultKind int

const (
	// ResultLong is the syscall convention: non-negative value or
	// negated errno.
	ResultLong ResultKind = iota
	// ResultCode is the backend convention: an error code with zero
	// meaning success.
	ResultCode
)

// SyscallInfo describes one intercepted operation.
type SyscallInfo struct {
	Name   string
	Route  RouteKind
	Result ResultKind
}

// Syscalls is the dispatch table. Adding an operation means adding a row
// here and the matching shim method.
var Syscalls = []SyscallInfo{
	{"open", RoutePath, ResultLong},
	{"unlink", RoutePath, ResultLong},
	{"mkdir", RoutePath, ResultLong},
	{"rmdir", RoutePath, ResultLong},
	{"chmod", RoutePath, ResultLong},
	{"chown", RoutePath, ResultLong},
	{"lchown", RoutePath, ResultLong},
	{"access", RoutePath, ResultLong},
	{"readlink", RoutePath, ResultLong},
	{"stat", RoutePath, ResultLong},
	{"lstat", RoutePath, ResultLong},
	{"statfs", RoutePath, ResultLong},
	{"truncate", RoutePath, ResultLong},
	{"chdir", RoutePath, ResultLong},
	{"mknod", RoutePath, ResultLong},
	{"rename", RouteTwoPath, ResultLong},

	{"read", RouteFD, ResultLong},
	{"write", RouteFD, ResultLong},
	{"pread", RouteFD, ResultLong},
	{"pwrite", RouteFD, ResultLong},
	{"seek", RouteFD, ResultLong},
	{"fstat", RouteFD, ResultLong},
	{"fchmod", RouteFD, ResultLong},
	{"fchown", RouteFD, ResultLong},
	{"ftruncate", RouteFD, ResultLong},
	{"fallocate", RouteFD, ResultLong},
	{"fcntl", RouteFD, ResultLong},
	{"ioctl", RouteFD, ResultLong},
	{"getdents", RouteFD, ResultLong},
	{"fchdir", RouteFD, ResultLong},
	{"fdatasync", RouteFD, ResultLong},
	{"fstatfs", RouteFD, ResultLong},

	{"close", RouteFD, ResultCode},
	{"sync", RouteFD, ResultCode},
	{"fdstat_get", RouteFD, ResultCode},
}

// Lookup finds a table row by operation name.
func Lookup(name string) (SyscallInfo, bool) {
	for _, s := range Syscalls {
		if s.Name == name {
			return s, true
		}
	}
	return SyscallInfo{}, false
}
