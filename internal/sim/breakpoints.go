package sim

import (
	"gni.dev/gdbstub/internal/target"
)

// maxHwSlots is the number of hardware breakpoints, and separately of
// watchpoints, the machine offers.
const maxHwSlots = 4

type watchpoint struct {
	addr, len uint64
	kind      target.WatchKind
}

func (w watchpoint) overlaps(addr, n uint64) bool {
	return addr < w.addr+w.len && w.addr < addr+n
}

func (w watchpoint) triggers(write bool) bool {
	switch w.kind {
	case target.WatchWrite:
		return write
	case target.WatchRead:
		return !write
	}
	return true
}

// watchHit reports the first watchpoint an access of n bytes at addr
// triggers. The caller holds mu.
func (m *Machine) watchHit(addr, n uint64, write bool) (watchpoint, bool) {
	for _, w := range m.watches {
		if w.overlaps(addr, n) && w.triggers(write) {
			return w, true
		}
	}
	return watchpoint{}, false
}

func (m *Machine) SupportSwBreakpoint() target.SwBreakpointOps { return m }
func (m *Machine) SupportHwBreakpoint() target.HwBreakpointOps { return m }
func (m *Machine) SupportHwWatchpoint() target.HwWatchpointOps { return m }

func (m *Machine) AddSwBreakpoint(addr, _ uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mem.mapped(addr) {
		return false, nil
	}
	m.swBreaks[addr] = true
	return true, nil
}

func (m *Machine) RemoveSwBreakpoint(addr, _ uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.swBreaks[addr] {
		return false, nil
	}
	delete(m.swBreaks, addr)
	return true, nil
}

func (m *Machine) AddHwBreakpoint(addr, _ uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hwBreaks[addr] && len(m.hwBreaks) == maxHwSlots {
		return false, nil
	}
	m.hwBreaks[addr] = true
	return true, nil
}

func (m *Machine) RemoveHwBreakpoint(addr, _ uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hwBreaks[addr] {
		return false, nil
	}
	delete(m.hwBreaks, addr)
	return true, nil
}

func (m *Machine) AddHwWatchpoint(addr, length uint64, kind target.WatchKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if length == 0 || len(m.watches) == maxHwSlots {
		return false, nil
	}
	m.watches = append(m.watches, watchpoint{addr: addr, len: length, kind: kind})
	return true, nil
}

func (m *Machine) RemoveHwWatchpoint(addr, length uint64, kind target.WatchKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := watchpoint{addr: addr, len: length, kind: kind}
	for i := range m.watches {
		if m.watches[i] == w {
			m.watches = append(m.watches[:i], m.watches[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Machine) EnableCatchSyscalls(filter []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catch = true
	m.catchFilter = nil
	if filter != nil {
		m.catchFilter = make(map[uint64]bool, len(filter))
		for _, nr := range filter {
			m.catchFilter[nr] = true
		}
	}
	return nil
}

func (m *Machine) DisableCatchSyscalls() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catch = false
	m.catchFilter = nil
	return nil
}

func (m *Machine) catching(nr uint64) bool {
	return m.catch && (m.catchFilter == nil || m.catchFilter[nr])
}
