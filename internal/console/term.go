package console

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	keyCtrlC     = 3
	keyCtrlD     = 4
	keyEscape    = 27
	keyBackspace = 127

	historySize = 100
)

var (
	escRed   = []byte{keyEscape, '[', '3', '1', 'm'}
	escReset = []byte{keyEscape, '[', '0', 'm'}

	keyUp     = []byte{'[', 'A'}
	keyDown   = []byte{'[', 'B'}
	keyRight  = []byte{'[', 'C'}
	keyLeft   = []byte{'[', 'D'}
	keyHome   = []byte{'[', 'H'}
	keyEnd    = []byte{'[', 'F'}
	keyDelete = []byte{'[', '3', '~'}

	crlf = []byte{'\r', '\n'}
)

// Term is a minimal line editor for a terminal in raw mode.
type Term struct {
	rw     io.ReadWriter
	r      *bufio.Reader
	prompt string

	line []rune
	pos  int

	history []string
	// hist indexes history while browsing, len(history) is the line being
	// edited.
	hist int
}

func NewTerm(rw io.ReadWriter, prompt string) *Term {
	return &Term{
		rw:     rw,
		r:      bufio.NewReaderSize(rw, 256),
		prompt: prompt,
	}
}

// Errorf prints a highlighted message on its own line.
func (t *Term) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(t.rw, "%s%s%s\r\n", escRed, msg, escReset)
}

// Print writes s translating newlines for a raw terminal.
func (t *Term) Print(s string) error {
	_, err := io.WriteString(t.rw, strings.ReplaceAll(s, "\n", "\r\n"))
	return err
}

// ReadLine returns the next line entered. Ctrl-C and Ctrl-D return io.EOF.
func (t *Term) ReadLine() (string, error) {
	if _, err := io.WriteString(t.rw, t.prompt); err != nil {
		return "", err
	}
	t.line = t.line[:0]
	t.pos = 0
	t.hist = len(t.history)

	for {
		r, _, err := t.r.ReadRune()
		if err != nil {
			return "", err
		}
		switch r {
		case keyEscape:
			err = t.handleEscape()
		case keyCtrlC, keyCtrlD:
			t.rw.Write(crlf)
			return "", io.EOF
		case keyBackspace, '\b':
			if t.pos > 0 {
				err = t.moveCursor(t.pos - 1)
				if err == nil {
					err = t.eraseChar()
				}
			}
		case '\r':
		case '\n':
			if _, err := t.rw.Write(crlf); err != nil {
				return "", err
			}
			line := string(t.line)
			t.appendHistory(line)
			return line, nil
		default:
			err = t.insert(r)
		}
		if err != nil {
			return "", err
		}
	}
}

func (t *Term) handleEscape() error {
	var seq []byte
	for {
		c, err := t.r.ReadByte()
		if err != nil {
			return err
		}
		seq = append(seq, c)
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '~' {
			break
		}
	}

	switch {
	case bytes.Equal(seq, keyUp):
		if t.hist == 0 {
			return t.beep()
		}
		t.hist--
		return t.replaceLine(t.history[t.hist])
	case bytes.Equal(seq, keyDown):
		if t.hist >= len(t.history) {
			return t.beep()
		}
		t.hist++
		if t.hist == len(t.history) {
			return t.replaceLine("")
		}
		return t.replaceLine(t.history[t.hist])
	case bytes.Equal(seq, keyLeft):
		return t.moveCursor(t.pos - 1)
	case bytes.Equal(seq, keyRight):
		return t.moveCursor(t.pos + 1)
	case bytes.Equal(seq, keyHome):
		return t.moveCursor(0)
	case bytes.Equal(seq, keyEnd):
		return t.moveCursor(len(t.line))
	case bytes.Equal(seq, keyDelete):
		return t.eraseChar()
	}
	return nil
}

func (t *Term) appendHistory(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if n := len(t.history); n > 0 && t.history[n-1] == line {
		return
	}
	t.history = append(t.history, line)
	if len(t.history) > historySize {
		t.history = t.history[1:]
	}
}

// insert puts r at the cursor and redraws the rest of the line.
func (t *Term) insert(r rune) error {
	t.line = append(t.line, 0)
	copy(t.line[t.pos+1:], t.line[t.pos:])
	t.line[t.pos] = r

	tail := string(t.line[t.pos:])
	if _, err := io.WriteString(t.rw, tail); err != nil {
		return err
	}
	t.pos = len(t.line)
	return t.moveCursor(t.pos - utf8.RuneCountInString(tail) + 1)
}

func (t *Term) replaceLine(line string) error {
	if err := t.moveCursor(0); err != nil {
		return err
	}
	if _, err := t.rw.Write([]byte{keyEscape, '[', 'K'}); err != nil {
		return err
	}
	t.line = append(t.line[:0], []rune(line)...)
	t.pos = len(t.line)
	_, err := io.WriteString(t.rw, line)
	return err
}

func (t *Term) moveCursor(pos int) error {
	pos = max(0, min(pos, len(t.line)))
	diff := pos - t.pos
	if diff == 0 {
		return nil
	}

	var err error
	if diff < 0 {
		_, err = fmt.Fprintf(t.rw, "\x1b[%dD", -diff)
	} else {
		_, err = fmt.Fprintf(t.rw, "\x1b[%dC", diff)
	}
	if err == nil {
		t.pos = pos
	}
	return err
}

func (t *Term) eraseChar() error {
	if t.pos == len(t.line) {
		return nil
	}
	if _, err := t.rw.Write([]byte{keyEscape, '[', 'P'}); err != nil {
		return err
	}
	t.line = append(t.line[:t.pos], t.line[t.pos+1:]...)
	return nil
}

func (t *Term) beep() error {
	_, err := t.rw.Write([]byte{'\a'})
	return err
}
