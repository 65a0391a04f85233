//go:build linux

package sim

import (
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"gni.dev/gdbstub/internal/target"
)

// HostFS serves vFile requests from a directory of the stub's host. Paths
// are resolved inside the root; ".." never leaves it.
type HostFS struct {
	root string
	pid  func() target.Pid

	mu     sync.Mutex
	files  map[uint32]int
	nextFd uint32
}

func NewHostFS(root string, pid func() target.Pid) *HostFS {
	return &HostFS{root: root, pid: pid, files: make(map[uint32]int), nextFd: 3}
}

func (h *HostFS) SupportOpen() target.HostIoOpenOps         { return h }
func (h *HostFS) SupportClose() target.HostIoCloseOps       { return h }
func (h *HostFS) SupportPread() target.HostIoPreadOps       { return h }
func (h *HostFS) SupportPwrite() target.HostIoPwriteOps     { return h }
func (h *HostFS) SupportFstat() target.HostIoFstatOps       { return h }
func (h *HostFS) SupportUnlink() target.HostIoUnlinkOps     { return h }
func (h *HostFS) SupportReadlink() target.HostIoReadlinkOps { return h }
func (h *HostFS) SupportSetfs() target.HostIoSetfsOps       { return h }

func (h *HostFS) path(name []byte) string {
	return filepath.Join(h.root, filepath.Clean("/"+string(name)))
}

func openFlags(f target.HostIoOpenFlags) int {
	var flags int
	switch f & target.HostIoAccessMask {
	case target.HostIoWriteOnly:
		flags = unix.O_WRONLY
	case target.HostIoReadWrite:
		flags = unix.O_RDWR
	default:
		flags = unix.O_RDONLY
	}
	if f&target.HostIoAppend != 0 {
		flags |= unix.O_APPEND
	}
	if f&target.HostIoCreate != 0 {
		flags |= unix.O_CREAT
	}
	if f&target.HostIoTruncate != 0 {
		flags |= unix.O_TRUNC
	}
	if f&target.HostIoExclusive != 0 {
		flags |= unix.O_EXCL
	}
	return flags | unix.O_CLOEXEC
}

func (h *HostFS) Open(filename []byte, flags target.HostIoOpenFlags, mode target.HostIoOpenMode) (uint32, error) {
	fd, err := unix.Open(h.path(filename), openFlags(flags), uint32(mode&target.HostIoModePerm))
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.nextFd
	h.nextFd++
	h.files[n] = fd
	return n, nil
}

func (h *HostFS) fd(n uint32) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fd, ok := h.files[n]
	if !ok {
		return 0, unix.EBADF
	}
	return fd, nil
}

func (h *HostFS) Close(n uint32) error {
	h.mu.Lock()
	fd, ok := h.files[n]
	delete(h.files, n)
	h.mu.Unlock()
	if !ok {
		return unix.EBADF
	}
	return unix.Close(fd)
}

// CloseAll releases every open descriptor.
func (h *HostFS) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for n, fd := range h.files {
		unix.Close(fd)
		delete(h.files, n)
	}
}

func (h *HostFS) Pread(n uint32, offset uint64, buf []byte) (int, error) {
	fd, err := h.fd(n)
	if err != nil {
		return 0, err
	}
	return unix.Pread(fd, buf, int64(offset))
}

func (h *HostFS) Pwrite(n uint32, offset uint64, data []byte) (int, error) {
	fd, err := h.fd(n)
	if err != nil {
		return 0, err
	}
	return unix.Pwrite(fd, data, int64(offset))
}

func (h *HostFS) Fstat(n uint32) (target.HostIoStat, error) {
	fd, err := h.fd(n)
	if err != nil {
		return target.HostIoStat{}, err
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return target.HostIoStat{}, err
	}
	return target.HostIoStat{
		Dev:     uint32(st.Dev),
		Ino:     uint32(st.Ino),
		Mode:    target.HostIoOpenMode(st.Mode),
		Nlink:   uint32(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint32(st.Rdev),
		Size:    uint64(st.Size),
		Blksize: uint64(st.Blksize),
		Blocks:  uint64(st.Blocks),
		Atime:   uint32(st.Atim.Sec),
		Mtime:   uint32(st.Mtim.Sec),
		Ctime:   uint32(st.Ctim.Sec),
	}, nil
}

func (h *HostFS) Unlink(filename []byte) error {
	return unix.Unlink(h.path(filename))
}

func (h *HostFS) Readlink(filename []byte, buf []byte) (int, error) {
	return unix.Readlink(h.path(filename), buf)
}

// Setfs accepts only the stub's own filesystem and the simulated process,
// which share the same root.
func (h *HostFS) Setfs(pid target.Pid) error {
	if pid != 0 && pid != h.pid() {
		return unix.ESRCH
	}
	return nil
}
