package client

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ErrorReply is an "Exx" reply.
type ErrorReply struct {
	Code uint8
}

func (e *ErrorReply) Error() string {
	return fmt.Sprintf("remote error %#02x", e.Code)
}

// checkReply turns "Exx" into an *ErrorReply.
func checkReply(resp []byte) error {
	if len(resp) == 3 && resp[0] == 'E' {
		code, err := strconv.ParseUint(string(resp[1:]), 16, 8)
		if err == nil {
			return &ErrorReply{Code: uint8(code)}
		}
	}
	return nil
}

func (c *Conn) execChecked(cmd string) ([]byte, error) {
	resp, err := c.Exec(cmd)
	if err != nil {
		return nil, err
	}
	return resp, checkReply(resp)
}

// Supported exchanges qSupported and returns the stub's feature list.
func (c *Conn) Supported(features ...string) ([]string, error) {
	cmd := "qSupported"
	if len(features) > 0 {
		cmd += ":" + strings.Join(features, ";")
	}
	resp, err := c.execChecked(cmd)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, nil
	}
	return strings.Split(string(resp), ";"), nil
}

// Threads lists thread ids as reported by qfThreadInfo/qsThreadInfo.
func (c *Conn) Threads() ([]string, error) {
	var tids []string
	cmd := "qfThreadInfo"
	for {
		resp, err := c.execChecked(cmd)
		if err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			return nil, fmt.Errorf("thread listing unsupported")
		}
		if resp[0] == 'l' {
			return tids, nil
		}
		if resp[0] != 'm' {
			return nil, fmt.Errorf("unexpected thread info: %s", resp)
		}
		tids = append(tids, strings.Split(string(resp[1:]), ",")...)
		cmd = "qsThreadInfo"
	}
}

// StopReason asks for the current halt reason with '?'.
func (c *Conn) StopReason() (string, error) {
	resp, err := c.execChecked("?")
	return string(resp), err
}

func (c *Conn) ReadMemory(addr uint64, n int) ([]byte, error) {
	resp, err := c.execChecked(fmt.Sprintf("m%x,%x", addr, n))
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(string(resp))
}

func (c *Conn) WriteMemory(addr uint64, data []byte) error {
	resp, err := c.execChecked(fmt.Sprintf("M%x,%x:%x", addr, len(data), data))
	if err != nil {
		return err
	}
	if string(resp) != "OK" {
		return fmt.Errorf("unexpected reply: %s", resp)
	}
	return nil
}

// ReadXfer reads a whole qXfer object in chunks of size bytes.
func (c *Conn) ReadXfer(object, annex string, size int) ([]byte, error) {
	var doc bytes.Buffer
	for {
		resp, err := c.execChecked(fmt.Sprintf("qXfer:%s:read:%s:%x,%x", object, annex, doc.Len(), size))
		if err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			return nil, fmt.Errorf("qXfer:%s unsupported", object)
		}
		doc.Write(resp[1:])
		switch resp[0] {
		case 'l':
			return doc.Bytes(), nil
		case 'm':
		default:
			return nil, fmt.Errorf("unexpected qXfer reply: %s", resp)
		}
	}
}

// Monitor runs a monitor command and collects its console output.
func (c *Conn) Monitor(cmd string) (string, error) {
	if err := c.Send("qRcmd," + hex.EncodeToString([]byte(cmd))); err != nil {
		return "", err
	}
	var out strings.Builder
	for {
		resp, err := c.Recv()
		if err != nil {
			return "", err
		}
		if err := checkReply(resp); err != nil {
			return out.String(), err
		}
		if len(resp) > 1 && resp[0] == 'O' && string(resp) != "OK" {
			b, err := hex.DecodeString(string(resp[1:]))
			if err != nil {
				return "", err
			}
			out.Write(b)
			continue
		}
		if string(resp) != "OK" {
			return out.String(), fmt.Errorf("unexpected reply: %s", resp)
		}
		return out.String(), nil
	}
}

// Continue resumes every thread and waits for the stop reply.
func (c *Conn) Continue() (string, error) {
	resp, err := c.execChecked("vCont;c")
	return string(resp), err
}
