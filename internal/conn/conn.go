// Package conn defines the byte channel the stub talks over.
package conn

import (
	"bufio"
	"io"
)

// Connection is the write side of a debugger connection. Reads are owned by
// the driver loop, so the stub core never reads.
type Connection interface {
	// Write a single byte.
	Write(b byte) error
	// WriteAll writes the entire buffer.
	WriteAll(p []byte) error
	// Flush pushes any buffered bytes to the peer.
	Flush() error
}

type flusher interface {
	Flush() error
}

// Stream adapts an io.ReadWriter (a net.Conn, a pipe, stdio) to Connection
// and exposes a buffered reader for the driver.
type Stream struct {
	rw io.ReadWriter
	br *bufio.Reader
}

func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{rw: rw, br: bufio.NewReader(rw)}
}

func (s *Stream) Write(b byte) error {
	_, err := s.rw.Write([]byte{b})
	return err
}

func (s *Stream) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := s.rw.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (s *Stream) Flush() error {
	if f, ok := s.rw.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// ReadByte blocks until the next byte is available.
func (s *Stream) ReadByte() (byte, error) {
	return s.br.ReadByte()
}

// Read reads whatever is buffered or available, up to len(p).
func (s *Stream) Read(p []byte) (int, error) {
	return s.br.Read(p)
}
