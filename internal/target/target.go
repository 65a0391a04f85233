// Package target defines the debuggee abstraction driven by the stub.
//
// A Target always provides BaseOps. Every other protocol extension is optional:
// the Support* methods return a narrower interface, or nil when the target does
// not implement it. Embed Unsupported to get nil defaults and override only
// the extensions you implement.
//
// Fallible operations return plain errors. The stub classifies them:
//
//   - Fatal(err) ends the debugging session and surfaces err to the caller.
//   - ErrNonFatal becomes the generic protocol error code 121.
//   - Errno(n) becomes protocol error code n.
//   - anything else is treated as an I/O error; a wrapped syscall.Errno is
//     reported verbatim, otherwise code 121 is used.
package target

// Tid is a thread id. Zero is never a valid thread.
type Tid uint64

// Pid is a process id. Zero means "unspecified".
type Pid uint64

// SingleThreadTid is the thread id reported by single threaded targets.
const SingleThreadTid Tid = 1

// Target is the debuggee.
type Target interface {
	BaseOps() BaseOps

	// UseResumeStub reports whether a resume packet sent to a target without
	// resume support should get a canned stop reply and a console warning
	// instead of an empty response.
	UseResumeStub() bool

	SupportBreakpoints() BreakpointsOps
	SupportCatchSyscalls() CatchSyscallsOps
	SupportExtendedMode() ExtendedModeOps
	SupportMonitorCmd() MonitorCmdOps
	SupportSectionOffsets() SectionOffsetsOps
	SupportMemoryMap() MemoryMapOps
	SupportHostIo() HostIoOps
	SupportExecFile() ExecFileOps
	SupportAuxv() AuxvOps
	SupportTargetDescriptionXML() TargetDescriptionXMLOps
}

// Unsupported implements every optional part of Target as absent.
type Unsupported struct{}

func (Unsupported) UseResumeStub() bool                                  { return true }
func (Unsupported) SupportBreakpoints() BreakpointsOps                   { return nil }
func (Unsupported) SupportCatchSyscalls() CatchSyscallsOps               { return nil }
func (Unsupported) SupportExtendedMode() ExtendedModeOps                 { return nil }
func (Unsupported) SupportMonitorCmd() MonitorCmdOps                     { return nil }
func (Unsupported) SupportSectionOffsets() SectionOffsetsOps             { return nil }
func (Unsupported) SupportMemoryMap() MemoryMapOps                       { return nil }
func (Unsupported) SupportHostIo() HostIoOps                             { return nil }
func (Unsupported) SupportExecFile() ExecFileOps                         { return nil }
func (Unsupported) SupportAuxv() AuxvOps                                 { return nil }
func (Unsupported) SupportTargetDescriptionXML() TargetDescriptionXMLOps { return nil }

// BaseOps are the operations every target must provide.
type BaseOps interface {
	// ReadRegisters returns the target's register block in the layout the
	// target description announces.
	ReadRegisters(tid Tid) ([]byte, error)
	WriteRegisters(tid Tid, regs []byte) error
	// ReadAddrs fills data starting at addr and returns the number of bytes
	// read. Returning fewer bytes than requested is allowed.
	ReadAddrs(tid Tid, addr uint64, data []byte) (int, error)
	WriteAddrs(tid Tid, addr uint64, data []byte) error
	// ListActiveThreads calls fn once per live thread.
	ListActiveThreads(fn func(Tid)) error
	IsThreadAlive(tid Tid) (bool, error)

	SupportResume() ResumeOps
	SupportSingleRegisterAccess() SingleRegisterAccessOps
}

type SingleRegisterAccessOps interface {
	// ReadRegister returns the register value, or nil if the register is
	// unavailable.
	ReadRegister(tid Tid, regID uint64) ([]byte, error)
	WriteRegister(tid Tid, regID uint64, val []byte) error
}

// TargetDescriptionXMLOps serves qXfer:features:read.
type TargetDescriptionXMLOps interface {
	// TargetDescriptionXML copies the annex document starting at offset into
	// buf and returns the number of bytes copied.
	TargetDescriptionXML(annex string, offset uint64, buf []byte) (int, error)
}
