package protocol

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformed = errors.New("malformed packet field")

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func parseHexByte(hi, lo byte) (uint8, error) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%w: %c%c is not hex", ErrMalformed, hi, lo)
	}
	return h<<4 | l, nil
}

// ParseHex parses a big-endian hex number such as an address or a length.
func ParseHex(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty number", ErrMalformed)
	}
	v, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}

// DecodeHex decodes a hex-encoded byte string.
func DecodeHex(b []byte) ([]byte, error) {
	out := make([]byte, hex.DecodedLen(len(b)))
	if _, err := hex.Decode(out, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// DecodeBinary undoes the '}' escaping used by binary packet fields.
func DecodeBinary(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '}' && i+1 < len(b) {
			i++
			out = append(out, b[i]^0x20)
			continue
		}
		out = append(out, b[i])
	}
	return out
}

func needsEscape(b byte) bool {
	return b == '#' || b == '$' || b == '}' || b == '*'
}

// ParseAddrLen parses the "addr,len" pair common to memory packets.
func ParseAddrLen(b []byte) (addr, length uint64, err error) {
	a, l, ok := bytes.Cut(b, []byte{','})
	if !ok {
		return 0, 0, fmt.Errorf("%w: expected addr,len in %q", ErrMalformed, b)
	}
	if addr, err = ParseHex(a); err != nil {
		return 0, 0, err
	}
	if length, err = ParseHex(l); err != nil {
		return 0, 0, err
	}
	return addr, length, nil
}
