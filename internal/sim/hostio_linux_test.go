//go:build linux

package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"gni.dev/gdbstub/internal/target"
)

func newHostFS(t *testing.T) (*HostFS, string) {
	t.Helper()
	root := t.TempDir()
	h := NewHostFS(root, func() target.Pid { return 1 })
	t.Cleanup(h.CloseAll)
	return h, root
}

func TestHostFSReadWrite(t *testing.T) {
	h, root := newHostFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "prog"), []byte("hello world"), 0o644))

	fd, err := h.Open([]byte("/prog"), target.HostIoReadWrite, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), fd)

	buf := make([]byte, 5)
	n, err := h.Pread(fd, 6, buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	n, err = h.Pwrite(fd, 0, []byte("HELLO"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	st, err := h.Fstat(fd)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), st.Size)
	assert.Equal(t, target.HostIoModeRegular|0o644, st.Mode)

	require.NoError(t, h.Close(fd))
	assert.ErrorIs(t, h.Close(fd), unix.EBADF)
	_, err = h.Pread(fd, 0, buf)
	assert.ErrorIs(t, err, unix.EBADF)

	b, err := os.ReadFile(filepath.Join(root, "prog"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO world", string(b))
}

func TestHostFSCreateAndUnlink(t *testing.T) {
	h, root := newHostFS(t)

	fd, err := h.Open([]byte("new"), target.HostIoWriteOnly|target.HostIoCreate|target.HostIoExclusive, 0o600)
	require.NoError(t, err)
	require.NoError(t, h.Close(fd))
	_, err = h.Open([]byte("new"), target.HostIoWriteOnly|target.HostIoCreate|target.HostIoExclusive, 0o600)
	assert.ErrorIs(t, err, unix.EEXIST)

	require.NoError(t, h.Unlink([]byte("/new")))
	_, err = os.Stat(filepath.Join(root, "new"))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, h.Unlink([]byte("/new")), unix.ENOENT)
}

func TestHostFSConfinedToRoot(t *testing.T) {
	h, root := newHostFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "passwd"), []byte("x"), 0o644))

	fd, err := h.Open([]byte("../../../passwd"), target.HostIoReadOnly, 0)
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, _ := h.Pread(fd, 0, buf)
	assert.Equal(t, "x", string(buf[:n]))

	_, err = h.Open([]byte("/etc/hostname"), target.HostIoReadOnly, 0)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestHostFSReadlink(t *testing.T) {
	h, root := newHostFS(t)
	require.NoError(t, os.Symlink("/bin/countdown", filepath.Join(root, "exe")))

	buf := make([]byte, 64)
	n, err := h.Readlink([]byte("exe"), buf)
	require.NoError(t, err)
	assert.Equal(t, "/bin/countdown", string(buf[:n]))

	_, err = h.Readlink([]byte("missing"), buf)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestHostFSSetfs(t *testing.T) {
	h, _ := newHostFS(t)
	assert.NoError(t, h.Setfs(0))
	assert.NoError(t, h.Setfs(1))
	assert.ErrorIs(t, h.Setfs(2), unix.ESRCH)
}

func TestMachineHostIo(t *testing.T) {
	m := newMachine(t, Config{HostRoot: t.TempDir()})
	defer m.Close()
	ops := m.SupportHostIo()
	require.NotNil(t, ops)
	assert.NotNil(t, ops.SupportOpen())
	assert.NotNil(t, ops.SupportSetfs())
	assert.NoError(t, ops.SupportSetfs().Setfs(1))
}
