// Package protocol implements GDB Remote Serial Protocol framing: packet
// decoding, response framing, hex and binary field encodings, and thread ids.
package protocol

import (
	"errors"
	"fmt"
)

const (
	// DefaultPacketSize is the inbound buffer size advertised in qSupported.
	DefaultPacketSize = 4096

	interruptByte = 0x03
)

var (
	ErrPacketBufferOverflow = errors.New("packet buffer overflow")
	ErrChecksumMismatch     = errors.New("checksum mismatch")
)

type PacketKind int

const (
	PacketAck PacketKind = iota
	PacketNack
	PacketInterrupt
	PacketCommand
)

func (k PacketKind) String() string {
	return []string{"ack", "nack", "interrupt", "command"}[k]
}

// Packet is one decoded unit of client input. Payload is only set for
// PacketCommand and holds the raw bytes between '$' and '#'.
type Packet struct {
	Kind    PacketKind
	Payload []byte
}

type decodeState int

const (
	stateIdle decodeState = iota
	stateBody
	stateChecksum
)

// Decoder turns a byte stream into packets. It is fed one byte at a time so
// the driver can interleave it with other events.
type Decoder struct {
	buf   []byte
	max   int
	state decodeState
	sum   uint8
	cs    []byte
}

func NewDecoder(size int) *Decoder {
	if size <= 0 {
		size = DefaultPacketSize
	}
	return &Decoder{buf: make([]byte, 0, size), max: size, cs: make([]byte, 0, 2)}
}

// Feed consumes b. It reports ok once a complete packet has been read. A
// checksum mismatch drops the frame and returns ErrChecksumMismatch; the
// decoder stays usable.
func (d *Decoder) Feed(b byte) (p Packet, ok bool, err error) {
	switch d.state {
	case stateIdle:
		switch b {
		case '+':
			return Packet{Kind: PacketAck}, true, nil
		case '-':
			return Packet{Kind: PacketNack}, true, nil
		case interruptByte:
			return Packet{Kind: PacketInterrupt}, true, nil
		case '$':
			d.buf = d.buf[:0]
			d.sum = 0
			d.state = stateBody
		}
		// line noise between packets is ignored
		return Packet{}, false, nil
	case stateBody:
		if b == '#' {
			d.cs = d.cs[:0]
			d.state = stateChecksum
			return Packet{}, false, nil
		}
		if len(d.buf) >= d.max {
			d.state = stateIdle
			return Packet{}, false, ErrPacketBufferOverflow
		}
		d.buf = append(d.buf, b)
		d.sum += b
		return Packet{}, false, nil
	default:
		d.cs = append(d.cs, b)
		if len(d.cs) < 2 {
			return Packet{}, false, nil
		}
		d.state = stateIdle
		want, err := parseHexByte(d.cs[0], d.cs[1])
		if err != nil {
			return Packet{}, false, fmt.Errorf("%w: bad checksum digits %q", ErrChecksumMismatch, d.cs)
		}
		if want != d.sum {
			return Packet{}, false, fmt.Errorf("%w: got %02x, want %02x", ErrChecksumMismatch, d.sum, want)
		}
		payload := make([]byte, len(d.buf))
		copy(payload, d.buf)
		return Packet{Kind: PacketCommand, Payload: payload}, true, nil
	}
}

// Checksum is the modulo-256 sum of the payload bytes.
func Checksum(p []byte) uint8 {
	var sum uint8
	for _, b := range p {
		sum += b
	}
	return sum
}
