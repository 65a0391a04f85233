package target

import "io"

type BreakpointsOps interface {
	SupportSwBreakpoint() SwBreakpointOps
	SupportHwBreakpoint() HwBreakpointOps
	SupportHwWatchpoint() HwWatchpointOps
}

// SwBreakpointOps adds and removes software breakpoints. The bool result
// reports whether the operation was possible, e.g. false when there is no
// breakpoint at addr to remove.
type SwBreakpointOps interface {
	AddSwBreakpoint(addr, kind uint64) (bool, error)
	RemoveSwBreakpoint(addr, kind uint64) (bool, error)
}

type HwBreakpointOps interface {
	AddHwBreakpoint(addr, kind uint64) (bool, error)
	RemoveHwBreakpoint(addr, kind uint64) (bool, error)
}

type HwWatchpointOps interface {
	AddHwWatchpoint(addr, length uint64, kind WatchKind) (bool, error)
	RemoveHwWatchpoint(addr, length uint64, kind WatchKind) (bool, error)
}

type CatchSyscallsOps interface {
	// EnableCatchSyscalls starts reporting syscall stops. A nil filter
	// catches every syscall.
	EnableCatchSyscalls(filter []uint64) error
	DisableCatchSyscalls() error
}

type AttachKind int

const (
	// Attached to an existing process.
	Attached AttachKind = iota
	// Created the process itself.
	Spawned
)

type ExtendedModeOps interface {
	// OnStart is called when the client enables extended mode.
	OnStart() error
	// Run spawns filename (empty: the target's default program) in a stopped
	// state.
	Run(filename string, args []string) (Pid, error)
	Attach(pid Pid) error
	// Kill kills pid (zero: the current process). It reports whether the
	// target has nothing left to debug.
	Kill(pid Pid) (bool, error)
	Restart() error
	QueryIfAttached(pid Pid) (AttachKind, error)

	SupportConfigureASLR() ConfigureASLROps
	SupportConfigureEnv() ConfigureEnvOps
	SupportConfigureStartupShell() ConfigureStartupShellOps
	SupportConfigureWorkingDir() ConfigureWorkingDirOps
}

type ConfigureASLROps interface {
	ConfigureASLR(enabled bool) error
}

type ConfigureEnvOps interface {
	SetEnv(key, val string) error
	RemoveEnv(key string) error
	ResetEnv() error
}

type ConfigureStartupShellOps interface {
	ConfigureStartupShell(enabled bool) error
}

type ConfigureWorkingDirOps interface {
	// ConfigureWorkingDir sets the directory for future runs; empty resets
	// it to the stub's own working directory.
	ConfigureWorkingDir(dir string) error
}

type MonitorCmdOps interface {
	// HandleMonitorCmd runs a "monitor" command. Anything written to out is
	// shown on the client's console.
	HandleMonitorCmd(cmd []byte, out io.Writer) error
}

type OffsetsKind int

const (
	OffsetsSections OffsetsKind = iota
	OffsetsSegments
)

// Offsets are the relocation offsets reported by qOffsets. For segment
// offsets only Text and Data are used; a zero Data is omitted.
type Offsets struct {
	Kind OffsetsKind
	Text uint64
	Data uint64
	Bss  uint64
}

type SectionOffsetsOps interface {
	GetSectionOffsets() (Offsets, error)
}

type MemoryMapOps interface {
	MemoryMapXML(offset uint64, buf []byte) (int, error)
}

type ExecFileOps interface {
	// GetExecFile copies the absolute path of pid's executable (zero: the
	// current process) starting at offset.
	GetExecFile(pid Pid, offset uint64, buf []byte) (int, error)
}

type AuxvOps interface {
	GetAuxv(offset uint64, buf []byte) (int, error)
}
