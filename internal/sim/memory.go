package sim

import "sort"

const pageSize = 4096

type region struct {
	start, size uint64
	rom         bool
}

func (r region) contains(addr uint64) bool {
	return addr >= r.start && addr-r.start < r.size
}

// memory is a sparse paged address space. Only addresses inside a region are
// mapped; pages are allocated on first write.
type memory struct {
	regions []region
	pages   map[uint64]*[pageSize]byte
}

func newMemory(regions ...region) *memory {
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })
	return &memory{regions: regions, pages: make(map[uint64]*[pageSize]byte)}
}

func (m *memory) mapped(addr uint64) bool {
	for _, r := range m.regions {
		if r.contains(addr) {
			return true
		}
	}
	return false
}

// read copies memory at addr into p up to the first unmapped byte.
func (m *memory) read(addr uint64, p []byte) int {
	for i := range p {
		a := addr + uint64(i)
		if !m.mapped(a) {
			return i
		}
		if pg, ok := m.pages[a/pageSize]; ok {
			p[i] = pg[a%pageSize]
		} else {
			p[i] = 0
		}
	}
	return len(p)
}

// write stores p at addr. It fails without writing anything if any byte is
// unmapped.
func (m *memory) write(addr uint64, p []byte) bool {
	for i := range p {
		if !m.mapped(addr + uint64(i)) {
			return false
		}
	}
	for i, b := range p {
		a := addr + uint64(i)
		pg, ok := m.pages[a/pageSize]
		if !ok {
			pg = new([pageSize]byte)
			m.pages[a/pageSize] = pg
		}
		pg[a%pageSize] = b
	}
	return true
}
