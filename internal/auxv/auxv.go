// Package auxv encodes and decodes 64-bit little-endian ELF auxiliary vectors.
package auxv

import (
	"encoding/binary"
	"errors"
)

// Tags, see /usr/include/linux/auxvec.h
const (
	AT_NULL         = 0
	AT_PHDR         = 3
	AT_PHENT        = 4
	AT_PHNUM        = 5
	AT_PAGESZ       = 6
	AT_BASE         = 7
	AT_ENTRY        = 9
	AT_SYSINFO_EHDR = 33

	ptrSize = 8
)

var ErrTruncated = errors.New("auxv: truncated vector")

type Entry struct {
	Tag uint64
	Val uint64
}

type AuxV struct {
	Entry    uint64
	Vdso     uint64
	PageSize uint64
	Phdr     uint64
}

// Encode writes entries followed by the AT_NULL terminator.
func Encode(entries []Entry) []byte {
	b := make([]byte, 0, (len(entries)+1)*ptrSize*2)
	for _, e := range entries {
		b = binary.LittleEndian.AppendUint64(b, e.Tag)
		b = binary.LittleEndian.AppendUint64(b, e.Val)
	}
	return append(b, make([]byte, ptrSize*2)...)
}

// Decode returns the entries up to, not including, AT_NULL.
func Decode(auxv []byte) ([]Entry, error) {
	var entries []Entry
	for i := 0; ; i += ptrSize * 2 {
		if i+ptrSize*2 > len(auxv) {
			return entries, ErrTruncated
		}
		tag := binary.LittleEndian.Uint64(auxv[i:])
		if tag == AT_NULL {
			return entries, nil
		}
		entries = append(entries, Entry{Tag: tag, Val: binary.LittleEndian.Uint64(auxv[i+ptrSize:])})
	}
}

func Parse(auxv []byte) (AuxV, error) {
	var a AuxV
	entries, err := Decode(auxv)
	for _, e := range entries {
		switch e.Tag {
		case AT_ENTRY:
			a.Entry = e.Val
		case AT_SYSINFO_EHDR:
			a.Vdso = e.Val
		case AT_PAGESZ:
			a.PageSize = e.Val
		case AT_PHDR:
			a.Phdr = e.Val
		}
	}
	return a, err
}
