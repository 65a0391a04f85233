package sim

import (
	"encoding/binary"
	"time"

	"golang.org/x/sys/unix"

	"gni.dev/gdbstub/internal/target"
)

type actionKind int

const (
	actContinue actionKind = iota
	actStep
	actRangeStep
)

type resumeAction struct {
	kind       actionKind
	sig        target.Signal
	start, end uint64
}

func (m *Machine) ClearResumeActions() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = make(map[target.Tid]resumeAction)
	return nil
}

func (m *Machine) setAction(tid target.Tid, a resumeAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.thread(tid); err != nil {
		return err
	}
	m.actions[tid] = a
	return nil
}

func (m *Machine) SetResumeActionContinue(tid target.Tid, sig target.Signal) error {
	return m.setAction(tid, resumeAction{kind: actContinue, sig: sig})
}

func (m *Machine) SetResumeActionStep(tid target.Tid, sig target.Signal) error {
	return m.setAction(tid, resumeAction{kind: actStep, sig: sig})
}

func (m *Machine) SetResumeActionRangeStep(tid target.Tid, start, end uint64) error {
	return m.setAction(tid, resumeAction{kind: actRangeStep, start: start, end: end})
}

func (m *Machine) SupportSingleStep() target.SingleStepOps   { return m }
func (m *Machine) SupportRangeStep() target.RangeStepOps     { return m }
func (m *Machine) SupportReverseCont() target.ReverseContOps { return m }
func (m *Machine) SupportReverseStep() target.ReverseStepOps { return m }

// Stopped delivers one stop reason per Resume, ReverseCont or ReverseStep.
func (m *Machine) Stopped() <-chan target.StopReason {
	return m.stopped
}

// Interrupt stops a running machine with SIGINT at the next instruction
// boundary.
func (m *Machine) Interrupt() error {
	m.interrupted.Store(true)
	return nil
}

// start runs fn on its own goroutine and delivers its result on Stopped.
func (m *Machine) start(fn func() target.StopReason) error {
	m.mu.Lock()
	alive := m.alive
	m.mu.Unlock()
	if !alive {
		return unix.ESRCH
	}
	if !m.running.CompareAndSwap(false, true) {
		return unix.EBUSY
	}
	m.interrupted.Store(false)
	go func() {
		reason := fn()
		m.log.Debug().Int("kind", int(reason.Kind)).Uint64("tid", uint64(reason.Tid)).Msg("sim stopped")
		m.running.Store(false)
		m.stopped <- reason
	}()
	return nil
}

func (m *Machine) Resume() error {
	m.mu.Lock()
	actions := m.actions
	m.actions = make(map[target.Tid]resumeAction)
	m.mu.Unlock()
	return m.start(func() target.StopReason { return m.execute(actions) })
}

func (m *Machine) execute(actions map[target.Tid]resumeAction) target.StopReason {
	m.mu.Lock()
	var order []target.Tid
	for _, tid := range m.activeThreads() {
		if _, ok := actions[tid]; ok {
			order = append(order, tid)
		}
	}
	for _, tid := range order {
		if sig := actions[tid].sig; sig == target.SigKill || sig == target.SigTerm {
			m.alive = false
			m.mu.Unlock()
			return target.Terminated(sig)
		}
	}
	m.mu.Unlock()

	if len(order) == 0 {
		return target.SignalStop(m.firstThread(), target.SigTrap)
	}

	// a thread resumed on a breakpoint executes it before it can trap again
	skip := make(map[target.Tid]bool, len(order))
	for _, tid := range order {
		skip[tid] = true
	}
	for {
		if m.interrupted.Load() {
			return target.SignalStop(order[0], target.SigInt)
		}
		if reason, stop := m.tick(order, actions, skip); stop {
			return reason
		}
		if m.cfg.StepDelay > 0 {
			time.Sleep(m.cfg.StepDelay)
		}
	}
}

// tick executes one instruction on every resumed thread.
func (m *Machine) tick(order []target.Tid, actions map[target.Tid]resumeAction, skip map[target.Tid]bool) (target.StopReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tid := range order {
		th := m.threads[tid]
		pc := th.regs[regPC]
		if !skip[tid] {
			if m.swBreaks[pc] {
				return target.SwBreak(tid), true
			}
			if m.hwBreaks[pc] {
				return target.HwBreak(tid), true
			}
		}
		skip[tid] = false

		if reason, stop := m.step(tid, th); stop {
			return reason, true
		}
		act := actions[tid]
		switch act.kind {
		case actStep:
			return target.DoneStep(tid), true
		case actRangeStep:
			if pc := th.regs[regPC]; pc < act.start || pc >= act.end {
				return target.DoneStep(tid), true
			}
		}
	}
	return target.StopReason{}, false
}

func (m *Machine) firstThread() target.Tid {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tids := m.activeThreads(); len(tids) > 0 {
		return tids[0]
	}
	return target.SingleThreadTid
}

// step executes the instruction at tid's pc. The caller holds mu.
func (m *Machine) step(tid target.Tid, th *thread) (target.StopReason, bool) {
	pc := th.regs[regPC]
	var w [insnSize]byte
	if m.mem.read(pc, w[:]) != insnSize {
		return target.SignalStop(tid, target.SigSegv), true
	}
	m.record(tid, th)

	in := decode(binary.LittleEndian.Uint32(w[:]))
	next := pc + insnSize
	r0 := &th.regs[0]
	switch in.op {
	case OpNop:
	case OpAddi:
		*r0 += uint64(in.simm())
	case OpJmp:
		next = m.cfg.Image.LoadAddr + uint64(in.imm)
	case OpJnz:
		if *r0 != 0 {
			next = m.cfg.Image.LoadAddr + uint64(in.imm)
		}
	case OpLoad, OpStore:
		addr := RAMBase + uint64(in.imm)
		var b [8]byte
		write := in.op == OpStore
		if write {
			binary.LittleEndian.PutUint64(b[:], *r0)
			if !m.mem.write(addr, b[:]) {
				return target.SignalStop(tid, target.SigSegv), true
			}
		} else {
			if m.mem.read(addr, b[:]) != len(b) {
				return target.SignalStop(tid, target.SigSegv), true
			}
			*r0 = binary.LittleEndian.Uint64(b[:])
		}
		th.regs[regPC] = next
		if wp, ok := m.watchHit(addr, uint64(len(b)), write); ok {
			return target.Watch(tid, wp.kind, addr), true
		}
		return target.StopReason{}, false
	case OpSyscall:
		return m.syscall(tid, th, uint64(in.imm), next)
	case OpHalt:
		m.alive = false
		return target.Exited(uint8(*r0)), true
	default:
		return target.SignalStop(tid, target.SigIll), true
	}
	th.regs[regPC] = next
	return target.StopReason{}, false
}

// syscall reports an entry stop without advancing pc, then a return stop
// once the thread runs again, for every caught syscall.
func (m *Machine) syscall(tid target.Tid, th *thread, nr, next uint64) (target.StopReason, bool) {
	if m.catching(nr) && !th.inSyscall {
		th.inSyscall = true
		return target.CatchSyscall(tid, nr, true), true
	}
	returning := th.inSyscall
	th.inSyscall = false
	if nr == SysExit {
		m.alive = false
		return target.Exited(uint8(th.regs[0])), true
	}
	th.regs[regPC] = next
	if returning {
		return target.CatchSyscall(tid, nr, false), true
	}
	return target.StopReason{}, false
}

func (m *Machine) record(tid target.Tid, th *thread) {
	if len(m.history) == historyLimit {
		m.history = m.history[1:]
	}
	m.history = append(m.history, snapshot{tid: tid, regs: th.regs, inSyscall: th.inSyscall})
}

// unwind restores the newest snapshot. Memory writes are not undone.
func (m *Machine) unwind() (target.Tid, bool) {
	if len(m.history) == 0 {
		return 0, false
	}
	s := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	if th, ok := m.threads[s.tid]; ok {
		th.regs = s.regs
		th.inSyscall = s.inSyscall
	}
	return s.tid, true
}

func (m *Machine) ReverseStep(tid target.Tid) error {
	return m.start(func() target.StopReason {
		m.mu.Lock()
		defer m.mu.Unlock()
		stepped, ok := m.unwind()
		if !ok {
			return target.ReplayLog(tid, true)
		}
		return target.DoneStep(stepped)
	})
}

func (m *Machine) ReverseCont() error {
	return m.start(func() target.StopReason {
		for {
			if m.interrupted.Load() {
				return target.SignalStop(m.firstThread(), target.SigInt)
			}
			if reason, stop := m.reverseTick(); stop {
				return reason
			}
		}
	})
}

func (m *Machine) reverseTick() (target.StopReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tid, ok := m.unwind()
	if !ok {
		tids := m.activeThreads()
		if len(tids) == 0 {
			return target.ReplayLog(target.SingleThreadTid, true), true
		}
		return target.ReplayLog(tids[0], true), true
	}
	pc := m.threads[tid].regs[regPC]
	if m.swBreaks[pc] {
		return target.SwBreak(tid), true
	}
	if m.hwBreaks[pc] {
		return target.HwBreak(tid), true
	}
	return target.StopReason{}, false
}
