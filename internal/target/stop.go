package target

import "fmt"

// Signal is a GDB signal number. Zero means "no signal".
type Signal uint8

const (
	SigNone Signal = 0
	SigHup  Signal = 1
	SigInt  Signal = 2
	SigQuit Signal = 3
	SigIll  Signal = 4
	SigTrap Signal = 5
	SigAbrt Signal = 6
	SigKill Signal = 9
	SigSegv Signal = 11
	SigTerm Signal = 15
)

var signalNames = map[Signal]string{
	SigHup:  "SIGHUP",
	SigInt:  "SIGINT",
	SigQuit: "SIGQUIT",
	SigIll:  "SIGILL",
	SigTrap: "SIGTRAP",
	SigAbrt: "SIGABRT",
	SigKill: "SIGKILL",
	SigSegv: "SIGSEGV",
	SigTerm: "SIGTERM",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

type WatchKind int

const (
	WatchWrite WatchKind = iota
	WatchRead
	WatchReadWrite
)

type StopKind int

const (
	StopDoneStep StopKind = iota
	StopSignal
	StopExited
	StopTerminated
	StopSwBreak
	StopHwBreak
	StopWatch
	StopReplayLog
	StopCatchSyscall
)

// StopReason describes why a resumed target halted. Tid may be zero for
// DoneStep and Signal on single threaded targets.
type StopReason struct {
	Kind     StopKind
	Tid      Tid
	Signal   Signal
	ExitCode uint8

	// Watch
	WatchKind WatchKind
	Addr      uint64

	// ReplayLog: true at the beginning of the log, false at its end.
	ReplayBegin bool

	// CatchSyscall
	Syscall      uint64
	SyscallEntry bool
}

func DoneStep(tid Tid) StopReason {
	return StopReason{Kind: StopDoneStep, Tid: tid, Signal: SigTrap}
}

func SignalStop(tid Tid, sig Signal) StopReason {
	return StopReason{Kind: StopSignal, Tid: tid, Signal: sig}
}

func Exited(code uint8) StopReason {
	return StopReason{Kind: StopExited, ExitCode: code}
}

func Terminated(sig Signal) StopReason {
	return StopReason{Kind: StopTerminated, Signal: sig}
}

func SwBreak(tid Tid) StopReason {
	return StopReason{Kind: StopSwBreak, Tid: tid, Signal: SigTrap}
}

func HwBreak(tid Tid) StopReason {
	return StopReason{Kind: StopHwBreak, Tid: tid, Signal: SigTrap}
}

func Watch(tid Tid, kind WatchKind, addr uint64) StopReason {
	return StopReason{Kind: StopWatch, Tid: tid, Signal: SigTrap, WatchKind: kind, Addr: addr}
}

func ReplayLog(tid Tid, begin bool) StopReason {
	return StopReason{Kind: StopReplayLog, Tid: tid, Signal: SigTrap, ReplayBegin: begin}
}

func CatchSyscall(tid Tid, nr uint64, entry bool) StopReason {
	return StopReason{Kind: StopCatchSyscall, Tid: tid, Signal: SigTrap, Syscall: nr, SyscallEntry: entry}
}
