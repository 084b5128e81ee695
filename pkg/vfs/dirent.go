package vfs

import (
	"bytes"
	"encoding/binary"
)

// direntHeaderLen is the fixed part of a linux_dirent64 record:
// ino(8) + off(8) + reclen(2) + type(1).
const direntHeaderLen = 19

// DirentLen returns the record length a directory entry occupies in a
// getdents buffer, padded to 8 bytes.
func DirentLen(name string) int {
	return (direntHeaderLen + len(name) + 1 + 7) &^ 7
}

// AppendDirent encodes ent as a linux_dirent64 record at buf[off:]. It
// returns the new offset, or off unchanged if the record does not fit.
func AppendDirent(buf []byte, off int, ent DirEntry) int {
	reclen := DirentLen(ent.Name)
	if off+reclen > len(buf) {
		return off
	}
	binary.LittleEndian.PutUint64(buf[off:], ent.Ino)
	binary.LittleEndian.PutUint64(buf[off+8:], uint64(ent.Offset))
	binary.LittleEndian.PutUint16(buf[off+16:], uint16(reclen))
	buf[off+18] = ent.Type
	copy(buf[off+direntHeaderLen:], ent.Name)
	buf[off+direntHeaderLen+len(ent.Name)] = 0
	return off + reclen
}

// ParseDirents decodes the linux_dirent64 records in buf[:n].
func ParseDirents(buf []byte, n int) []DirEntry {
	var entries []DirEntry
	off := 0
	for off+direntHeaderLen <= n {
		reclen := int(binary.LittleEndian.Uint16(buf[off+16:]))
		if reclen < direntHeaderLen || off+reclen > n {
			break
		}
		name := buf[off+direntHeaderLen : off+reclen]
		if i := bytes.IndexByte(name, 0); i >= 0 {
			name = name[:i]
		}
		entries = append(entries, DirEntry{
			Name:   string(name),
			Type:   buf[off+18],
			Ino:    binary.LittleEndian.Uint64(buf[off:]),
			Offset: int64(binary.LittleEndian.Uint64(buf[off+8:])),
		})
		off += reclen
	}
	return entries
}
