package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableHasNoDuplicates(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Syscalls {
		assert.False(t, seen[s.Name], "duplicate entry %q", s.Name)
		seen[s.Name] = true
	}
}

func TestTableRouteKinds(t *testing.T) {
	pathOps := []string{
		"open", "unlink", "mkdir", "rmdir", "chmod", "chown", "lchown",
		"access", "readlink", "stat", "lstat", "statfs", "truncate",
		"chdir", "mknod",
	}
	fdOps := []string{
		"read", "write", "pread", "pwrite", "seek", "close", "fstat",
		"fchmod", "fchown", "ftruncate", "fallocate", "fcntl", "ioctl",
		"getdents", "fchdir", "sync", "fdatasync", "fstatfs", "fdstat_get",
	}

	for _, name := range pathOps {
		s, ok := Lookup(name)
		require.True(t, ok, "missing %q", name)
		assert.Equal(t, RoutePath, s.Route, "%q", name)
	}
	for _, name := range fdOps {
		s, ok := Lookup(name)
		require.True(t, ok, "missing %q", name)
		assert.Equal(t, RouteFD, s.Route, "%q", name)
	}

	s, ok := Lookup("rename")
	require.True(t, ok)
	assert.Equal(t, RouteTwoPath, s.Route)
}

func TestTableResultKinds(t *testing.T) {
	for _, name := range []string{"close", "sync", "fdstat_get"} {
		s, ok := Lookup(name)
		require.True(t, ok)
		assert.Equal(t, ResultCode, s.Result, "%q", name)
	}
	s, _ := Lookup("read")
	assert.Equal(t, ResultLong, s.Result)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("sendfile")
	assert.False(t, ok)
}
