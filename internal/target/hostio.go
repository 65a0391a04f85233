package target

import "encoding/binary"

// Open flags as encoded on the wire by vFile:open.
type HostIoOpenFlags uint32

const (
	HostIoReadOnly  HostIoOpenFlags = 0x0
	HostIoWriteOnly HostIoOpenFlags = 0x1
	HostIoReadWrite HostIoOpenFlags = 0x2
	HostIoAppend    HostIoOpenFlags = 0x8
	HostIoCreate    HostIoOpenFlags = 0x200
	HostIoTruncate  HostIoOpenFlags = 0x400
	HostIoExclusive HostIoOpenFlags = 0x800

	HostIoAccessMask HostIoOpenFlags = 0x3
)

// HostIoOpenMode carries the file type and permission bits.
type HostIoOpenMode uint32

const (
	HostIoModeRegular HostIoOpenMode = 0o100000
	HostIoModeDir     HostIoOpenMode = 0o40000
	HostIoModePerm    HostIoOpenMode = 0o777
)

// HostIoStat mirrors the fixed layout of the protocol's struct stat.
type HostIoStat struct {
	Dev     uint32
	Ino     uint32
	Mode    HostIoOpenMode
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Size    uint64
	Blksize uint64
	Blocks  uint64
	Atime   uint32
	Mtime   uint32
	Ctime   uint32
}

// AppendBinary appends the 64 byte big-endian encoding of the stat to b.
func (s HostIoStat) AppendBinary(b []byte) []byte {
	for _, v := range []uint32{s.Dev, s.Ino, uint32(s.Mode), s.Nlink, s.Uid, s.Gid, s.Rdev} {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	for _, v := range []uint64{s.Size, s.Blksize, s.Blocks} {
		b = binary.BigEndian.AppendUint64(b, v)
	}
	for _, v := range []uint32{s.Atime, s.Mtime, s.Ctime} {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b
}

// HostIoOps gives the client access to the stub host's filesystem. Each
// vFile operation is an optional sub-extension.
type HostIoOps interface {
	SupportOpen() HostIoOpenOps
	SupportClose() HostIoCloseOps
	SupportPread() HostIoPreadOps
	SupportPwrite() HostIoPwriteOps
	SupportFstat() HostIoFstatOps
	SupportUnlink() HostIoUnlinkOps
	SupportReadlink() HostIoReadlinkOps
	SupportSetfs() HostIoSetfsOps
}

type HostIoOpenOps interface {
	Open(filename []byte, flags HostIoOpenFlags, mode HostIoOpenMode) (uint32, error)
}

type HostIoCloseOps interface {
	Close(fd uint32) error
}

type HostIoPreadOps interface {
	// Pread reads up to len(buf) bytes at offset.
	Pread(fd uint32, offset uint64, buf []byte) (int, error)
}

type HostIoPwriteOps interface {
	Pwrite(fd uint32, offset uint64, data []byte) (int, error)
}

type HostIoFstatOps interface {
	Fstat(fd uint32) (HostIoStat, error)
}

type HostIoUnlinkOps interface {
	Unlink(filename []byte) error
}

type HostIoReadlinkOps interface {
	Readlink(filename []byte, buf []byte) (int, error)
}

// HostIoSetfsOps selects whose filesystem later calls operate on. Pid zero
// means the stub's own.
type HostIoSetfsOps interface {
	Setfs(pid Pid) error
}
