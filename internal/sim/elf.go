package sim

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

var ErrNoText = errors.New("sim: no executable segment")

// LoadELF reads the first executable PT_LOAD segment of an ELF file as the
// machine image.
func LoadELF(path string) (Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return Image{}, err
	}
	defer f.Close()

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Flags&elf.PF_X == 0 {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(p.Open(), int64(p.Filesz)))
		if err != nil {
			return Image{}, fmt.Errorf("sim: read segment: %w", err)
		}
		return Image{Data: data, LoadAddr: p.Vaddr, Entry: f.Entry}, nil
	}
	return Image{}, ErrNoText
}
