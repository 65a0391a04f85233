package protocol

import (
	"encoding/hex"
	"strconv"

	"gni.dev/gdbstub/internal/conn"
)

// ResponseWriter accumulates the payload of one outbound frame. Nothing
// reaches the connection until Flush, so a response that is never flushed
// leaves no bytes on the wire.
type ResponseWriter struct {
	c   conn.Connection
	buf []byte
}

func NewResponseWriter(c conn.Connection) *ResponseWriter {
	return &ResponseWriter{c: c, buf: make([]byte, 0, 256)}
}

// Conn returns the underlying connection, e.g. to emit a separate frame with
// a second writer before this one is flushed.
func (w *ResponseWriter) Conn() conn.Connection {
	return w.c
}

func (w *ResponseWriter) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

func (w *ResponseWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteHexBuf writes each byte as two lowercase hex digits.
func (w *ResponseWriter) WriteHexBuf(p []byte) {
	w.buf = hex.AppendEncode(w.buf, p)
}

// WriteHexByte writes exactly two hex digits.
func (w *ResponseWriter) WriteHexByte(b uint8) {
	w.buf = hex.AppendEncode(w.buf, []byte{b})
}

// WriteNum writes v in hex without leading zeros.
func (w *ResponseWriter) WriteNum(v uint64) {
	w.buf = strconv.AppendUint(w.buf, v, 16)
}

// WriteBinary writes p escaping the bytes that are special inside a frame.
func (w *ResponseWriter) WriteBinary(p []byte) {
	for _, b := range p {
		if needsEscape(b) {
			w.buf = append(w.buf, '}', b^0x20)
			continue
		}
		w.buf = append(w.buf, b)
	}
}

// WriteThreadID writes a thread id in its plain (non multiprocess) form.
func (w *ResponseWriter) WriteThreadID(tid uint64) {
	w.WriteNum(tid)
}

// Flush frames the payload as $payload#cs, writes it and flushes the
// connection. The writer is empty afterwards.
func (w *ResponseWriter) Flush() error {
	frame := make([]byte, 0, len(w.buf)+4)
	frame = append(frame, '$')
	frame = append(frame, w.buf...)
	frame = append(frame, '#')
	frame = hex.AppendEncode(frame, []byte{Checksum(w.buf)})
	w.buf = w.buf[:0]

	if err := w.c.WriteAll(frame); err != nil {
		return err
	}
	return w.c.Flush()
}
