// Package client is a small RSP client. It speaks just enough of the
// protocol to interrogate a stub: framing, acks and no-ack negotiation,
// console output, qXfer objects and host I/O file reads.
package client

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"gni.dev/gdbstub/internal/protocol"
)

const maxRetransmits = 5

type Conn struct {
	remote io.ReadWriter
	br     *bufio.Reader
	ack    bool
}

func NewConn(remote io.ReadWriter) *Conn {
	return &Conn{remote: remote, br: bufio.NewReader(remote), ack: true}
}

// Handshake acknowledges anything pending and tries to switch the stub to
// no-ack mode.
func (c *Conn) Handshake() error {
	c.ack = true

	if err := c.sendACK(true); err != nil {
		return err
	}
	return c.disableACK()
}

// NoAck reports whether acks were negotiated away.
func (c *Conn) NoAck() bool {
	return !c.ack
}

// Close closes the underlying connection if it can be closed.
func (c *Conn) Close() error {
	if closer, ok := c.remote.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Exec sends cmd and returns the next reply.
func (c *Conn) Exec(cmd string) ([]byte, error) {
	if err := c.Send(cmd); err != nil {
		return nil, err
	}
	return c.Recv()
}

func (c *Conn) Send(cmd string) error {
	p := fmt.Sprintf("$%s#%02x", cmd, protocol.Checksum([]byte(cmd)))

	for i := 0; i < maxRetransmits; i++ {
		if _, err := c.remote.Write([]byte(p)); err != nil {
			return err
		}

		if !c.ack {
			return nil
		}

		ok, err := c.recvACK()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("failed to send %s after %d attempts", cmd, maxRetransmits)
}

// Interrupt sends the out-of-band break byte.
func (c *Conn) Interrupt() error {
	_, err := c.remote.Write([]byte{0x03})
	return err
}

// Recv reads the next reply and undoes binary escaping.
func (c *Conn) Recv() ([]byte, error) {
	for i := 0; i < maxRetransmits; i++ {
		res, err := c.br.ReadBytes('#')
		if err != nil {
			return nil, err
		}

		buf := make([]byte, 2)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return nil, err
		}

		start := 0
		for start < len(res) && res[start] != '$' && res[start] != '%' {
			start++ // stray acks from before no-ack mode
		}
		if start == len(res) {
			return nil, fmt.Errorf("missing packet start: %q", res)
		}
		if res[start] == '%' {
			continue // ignore async notifications
		}

		raw := res[start+1 : len(res)-1]
		sum, err := strconv.ParseUint(string(buf), 16, 8)
		if err != nil {
			return nil, err
		}
		sumOK := uint8(sum) == protocol.Checksum(raw)

		if !c.ack {
			if sumOK {
				return protocol.DecodeBinary(raw), nil
			}
			return nil, fmt.Errorf("checksum mismatch: %s", res)
		}

		if sumOK {
			if err := c.sendACK(true); err != nil {
				return nil, err
			}
			return protocol.DecodeBinary(raw), nil
		}
		if err := c.sendACK(false); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to recv data after %d attempts", maxRetransmits)
}

func (c *Conn) sendACK(ack bool) error {
	var err error
	if ack {
		_, err = c.remote.Write([]byte{'+'})
	} else {
		_, err = c.remote.Write([]byte{'-'})
	}
	return err
}

func (c *Conn) recvACK() (bool, error) {
	b, err := c.br.ReadByte()
	if err != nil {
		return false, err
	}
	if b != '+' && b != '-' {
		return false, fmt.Errorf("invalid ack byte: %c", b)
	}
	return b == '+', nil
}

func (c *Conn) disableACK() error {
	res, err := c.Exec("QStartNoAckMode")
	c.ack = string(res) != "OK"
	return err
}
