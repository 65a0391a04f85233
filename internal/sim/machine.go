// Package sim is a simulated debuggee: a small pseudo machine with paged
// memory, a few threads sharing one address space and a 4 byte instruction
// set. It implements every extension of target.Target and is what the
// gdbstub command serves when no other target is configured.
package sim

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"gni.dev/gdbstub/internal/target"
)

const (
	DefaultLoadAddr = 0x10000
	RAMBase         = 0x20000000
	DefaultRAMSize  = 0x10000

	// registers r0..r15 followed by pc, 8 bytes each
	numRegs = 17
	regPC   = 16
	regSize = 8

	historyLimit = 1 << 16
)

// Image is the program loaded at LoadAddr.
type Image struct {
	Data     []byte
	LoadAddr uint64
	// Entry is the initial pc, LoadAddr if zero.
	Entry uint64
}

type Config struct {
	// Image defaults to Countdown.
	Image    Image
	RAMSize  uint64
	Threads  int
	ExecPath string
	// HostRoot is the directory vFile operations are confined to. Host I/O
	// is disabled when empty.
	HostRoot string
	// LoadBias is reported by qOffsets.
	LoadBias uint64
	// StepDelay slows execution down, e.g. to interrupt a running loop.
	StepDelay time.Duration
}

type thread struct {
	regs      [numRegs]uint64
	inSyscall bool
}

type snapshot struct {
	tid       target.Tid
	regs      [numRegs]uint64
	inSyscall bool
}

type Machine struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	mem     *memory
	threads map[target.Tid]*thread
	tids    []target.Tid
	alive   bool
	pid     target.Pid
	attach  target.AttachKind

	actions     map[target.Tid]resumeAction
	swBreaks    map[uint64]bool
	hwBreaks    map[uint64]bool
	watches     []watchpoint
	catch       bool
	catchFilter map[uint64]bool
	history     []snapshot

	running     atomic.Bool
	interrupted atomic.Bool
	stopped     chan target.StopReason

	extended     bool
	aslr         bool
	startupShell bool
	workDir      string
	env          map[string]string
	args         []string

	host *HostFS
}

type Option func(*Machine)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

func New(cfg Config, opts ...Option) (*Machine, error) {
	if cfg.Image.Data == nil {
		cfg.Image = Image{Data: Countdown, LoadAddr: DefaultLoadAddr}
	}
	if cfg.Image.Entry == 0 {
		cfg.Image.Entry = cfg.Image.LoadAddr
	}
	if cfg.RAMSize == 0 {
		cfg.RAMSize = DefaultRAMSize
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	if cfg.Threads < 0 || cfg.Threads > 64 {
		return nil, fmt.Errorf("sim: invalid thread count %d", cfg.Threads)
	}

	m := &Machine{
		cfg:      cfg,
		log:      zerolog.Nop(),
		pid:      1,
		attach:   target.Spawned,
		actions:  make(map[target.Tid]resumeAction),
		swBreaks: make(map[uint64]bool),
		hwBreaks: make(map[uint64]bool),
		stopped:  make(chan target.StopReason, 1),
		aslr:     true,
		env:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if cfg.HostRoot != "" {
		m.host = NewHostFS(cfg.HostRoot, m.pidOf)
	}
	m.reset()
	return m, nil
}

// reset reloads the image and puts every thread back at the entry point.
// The caller holds mu or owns m exclusively.
func (m *Machine) reset() {
	img := m.cfg.Image
	romSize := (uint64(len(img.Data)) + pageSize - 1) / pageSize * pageSize
	m.mem = newMemory(
		region{start: img.LoadAddr, size: romSize, rom: true},
		region{start: RAMBase, size: m.cfg.RAMSize},
	)
	m.mem.write(img.LoadAddr, img.Data)

	m.threads = make(map[target.Tid]*thread, m.cfg.Threads)
	m.tids = m.tids[:0]
	for i := 1; i <= m.cfg.Threads; i++ {
		th := &thread{}
		th.regs[regPC] = img.Entry
		m.threads[target.Tid(i)] = th
		m.tids = append(m.tids, target.Tid(i))
	}
	m.history = nil
	m.alive = true
}

// Close releases host files opened through vFile.
func (m *Machine) Close() error {
	if m.host != nil {
		m.host.CloseAll()
	}
	return nil
}

func (m *Machine) pidOf() target.Pid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pid
}

func (m *Machine) thread(tid target.Tid) (*thread, error) {
	th, ok := m.threads[tid]
	if !ok || !m.alive {
		return nil, unix.ESRCH
	}
	return th, nil
}

func (m *Machine) BaseOps() target.BaseOps                                     { return m }
func (m *Machine) UseResumeStub() bool                                         { return false }
func (m *Machine) SupportBreakpoints() target.BreakpointsOps                   { return m }
func (m *Machine) SupportCatchSyscalls() target.CatchSyscallsOps               { return m }
func (m *Machine) SupportExtendedMode() target.ExtendedModeOps                 { return m }
func (m *Machine) SupportMonitorCmd() target.MonitorCmdOps                     { return m }
func (m *Machine) SupportSectionOffsets() target.SectionOffsetsOps             { return m }
func (m *Machine) SupportMemoryMap() target.MemoryMapOps                       { return m }
func (m *Machine) SupportAuxv() target.AuxvOps                                 { return m }
func (m *Machine) SupportTargetDescriptionXML() target.TargetDescriptionXMLOps { return m }

func (m *Machine) SupportHostIo() target.HostIoOps {
	if m.host == nil {
		return nil
	}
	return m.host
}

func (m *Machine) SupportExecFile() target.ExecFileOps {
	if m.cfg.ExecPath == "" {
		return nil
	}
	return m
}

func (m *Machine) SupportResume() target.ResumeOps                             { return m }
func (m *Machine) SupportSingleRegisterAccess() target.SingleRegisterAccessOps { return m }

func (m *Machine) ReadRegisters(tid target.Tid) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	th, err := m.thread(tid)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, numRegs*regSize)
	for _, r := range th.regs {
		b = binary.LittleEndian.AppendUint64(b, r)
	}
	return b, nil
}

func (m *Machine) WriteRegisters(tid target.Tid, regs []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	th, err := m.thread(tid)
	if err != nil {
		return err
	}
	if len(regs) != numRegs*regSize {
		return unix.EINVAL
	}
	for i := range th.regs {
		th.regs[i] = binary.LittleEndian.Uint64(regs[i*regSize:])
	}
	return nil
}

func (m *Machine) ReadRegister(tid target.Tid, regID uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	th, err := m.thread(tid)
	if err != nil {
		return nil, err
	}
	if regID >= numRegs {
		return nil, nil
	}
	return binary.LittleEndian.AppendUint64(nil, th.regs[regID]), nil
}

func (m *Machine) WriteRegister(tid target.Tid, regID uint64, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	th, err := m.thread(tid)
	if err != nil {
		return err
	}
	if regID >= numRegs || len(val) != regSize {
		return unix.EINVAL
	}
	th.regs[regID] = binary.LittleEndian.Uint64(val)
	return nil
}

func (m *Machine) ReadAddrs(_ target.Tid, addr uint64, data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.read(addr, data), nil
}

func (m *Machine) WriteAddrs(_ target.Tid, addr uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mem.write(addr, data) {
		return unix.EFAULT
	}
	return nil
}

func (m *Machine) ListActiveThreads(fn func(target.Tid)) error {
	m.mu.Lock()
	tids := m.activeThreads()
	m.mu.Unlock()
	for _, tid := range tids {
		fn(tid)
	}
	return nil
}

func (m *Machine) activeThreads() []target.Tid {
	if !m.alive {
		return nil
	}
	tids := append([]target.Tid(nil), m.tids...)
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })
	return tids
}

func (m *Machine) IsThreadAlive(tid target.Tid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.thread(tid)
	return err == nil, nil
}

// PC returns the program counter of tid.
func (m *Machine) PC(tid target.Tid) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if th, ok := m.threads[tid]; ok {
		return th.regs[regPC]
	}
	return 0
}
