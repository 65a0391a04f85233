//go:build !linux

package sim

import "gni.dev/gdbstub/internal/target"

// HostFS is only available on linux. NewHostFS returns nil elsewhere, which
// leaves host I/O disabled.
type HostFS struct{}

func NewHostFS(string, func() target.Pid) *HostFS { return nil }

func (*HostFS) CloseAll() {}

func (*HostFS) SupportOpen() target.HostIoOpenOps         { return nil }
func (*HostFS) SupportClose() target.HostIoCloseOps       { return nil }
func (*HostFS) SupportPread() target.HostIoPreadOps       { return nil }
func (*HostFS) SupportPwrite() target.HostIoPwriteOps     { return nil }
func (*HostFS) SupportFstat() target.HostIoFstatOps       { return nil }
func (*HostFS) SupportUnlink() target.HostIoUnlinkOps     { return nil }
func (*HostFS) SupportReadlink() target.HostIoReadlinkOps { return nil }
func (*HostFS) SupportSetfs() target.HostIoSetfsOps       { return nil }
