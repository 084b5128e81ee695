package vfs

import (
	"time"

	"golang.org/x/sys/unix"
)

type FileInfo struct {
	Name    string
	Size    int64
	Mode    uint32
	ModTime time.Time
	IsDir   bool
	Nlink   uint64
	Uid     uint32
	Gid     uint32
	Rdev    uint64
	Ino     uint64
	Blksize int64
	Blocks  int64
	Atime   time.Time
	Ctime   time.Time
}

func FileInfoFromStat(name string, st *unix.Stat_t) *FileInfo {
	return &FileInfo{
		Name:    name,
		Size:    st.Size,
		Mode:    uint32(st.Mode),
		ModTime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		IsDir:   st.Mode&unix.S_IFDIR != 0,
		Nlink:   uint64(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Ino:     st.Ino,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   time.Unix(st.Atim.Sec, st.Atim.Nsec),
		Ctime:   time.Unix(st.Ctim.Sec, st.Ctim.Nsec),
	}
}

type DirEntry struct {
	Name   string
	Type   uint8
	Ino    uint64
	Offset int64
}

// Fdstat mirrors the descriptor status record of the backend contract.
type Fdstat struct {
	Filetype uint8
	Flags    uint32
}

type OpenFlags int

const (
	O_RDONLY OpenFlags = unix.O_RDONLY
	O_WRONLY OpenFlags = unix.O_WRONLY
	O_RDWR   OpenFlags = unix.O_RDWR
	O_APPEND OpenFlags = unix.O_APPEND
	O_CREAT  OpenFlags = unix.O_CREAT
	O_EXCL   OpenFlags = unix.O_EXCL
	O_TRUNC  OpenFlags = unix.O_TRUNC
)

func (f OpenFlags) IsWrite() bool {
	return f&O_WRONLY != 0 || f&O_RDWR != 0
}

func (f OpenFlags) IsCreate() bool {
	return f&O_CREAT != 0
}

func (f OpenFlags) IsTrunc() bool {
	return f&O_TRUNC != 0
}

// Seek whence values, same as the host's.
const (
	SeekSet = unix.SEEK_SET
	SeekCur = unix.SEEK_CUR
	SeekEnd = unix.SEEK_END
)

// Directory entry types, as stored in the d_type field.
const (
	DTUnknown uint8 = 0
	DTDir     uint8 = unix.DT_DIR
	DTReg     uint8 = unix.DT_REG
	DTLnk     uint8 = unix.DT_LNK
)

type StatfsInfo struct {
	Type    int64
	Bsize   int64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Namelen int64
	Frsize  int64
	Flags   int64
}
