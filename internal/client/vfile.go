package client

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// HostIoError is a failed vFile operation, "F-1,errno".
type HostIoError struct {
	Errno uint64
}

func (e *HostIoError) Error() string {
	return fmt.Sprintf("file operation failed: errno %d", e.Errno)
}

// File is a file on the stub's host opened with vFile:open.
type File struct {
	c  *Conn
	fd int
}

func (c *Conn) OpenFile(filename string) (*File, error) {
	encFilename := hex.EncodeToString([]byte(filename))
	resp, err := c.Exec(fmt.Sprintf("vFile:open:%s,0,0", encFilename))
	if err != nil {
		return nil, err
	}
	fd, err := parseFileResp(resp, nil)
	if err != nil {
		return nil, err
	}
	return &File{c: c, fd: fd}, nil
}

func (f *File) Close() error {
	resp, err := f.c.Exec(fmt.Sprintf("vFile:close:%x", f.fd))
	if err != nil {
		return err
	}
	_, err = parseFileResp(resp, nil)
	return err
}

// ReadAt issues as many preads as needed, the stub may return less than
// asked for.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	for n < len(p) {
		resp, err := f.c.Exec(fmt.Sprintf("vFile:pread:%x,%x,%x", f.fd, len(p)-n, off+int64(n)))
		if err != nil {
			return n, err
		}
		m, err := parseFileResp(resp, p[n:])
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.EOF
		}
		n += m
	}
	return n, nil
}

// Size returns the file size from vFile:fstat.
func (f *File) Size() (int64, error) {
	resp, err := f.c.Exec(fmt.Sprintf("vFile:fstat:%x", f.fd))
	if err != nil {
		return 0, err
	}
	st := make([]byte, 64)
	n, err := parseFileResp(resp, st)
	if err != nil {
		return 0, err
	}
	if n != len(st) {
		return 0, fmt.Errorf("short stat: %d bytes", n)
	}
	// st_size follows seven 4 byte fields
	return int64(binary.BigEndian.Uint64(st[28:])), nil
}

func parseFileResp(resp []byte, p []byte) (int, error) {
	if len(resp) < 2 || resp[0] != 'F' {
		return 0, fmt.Errorf("unexpected file response: %s", resp)
	}
	if bytes.HasPrefix(resp, []byte("F-1")) {
		errno := uint64(0)
		if i := bytes.IndexByte(resp, ','); i >= 0 {
			errno, _ = strconv.ParseUint(string(resp[i+1:]), 16, 64)
		}
		return 0, &HostIoError{Errno: errno}
	}
	idx := bytes.IndexByte(resp, ';')
	if idx == -1 {
		n, _ := strconv.ParseInt(string(resp[1:]), 16, 64)
		return int(n), nil
	}
	n, _ := strconv.ParseInt(string(resp[1:idx]), 16, 64)
	if len(resp)-idx-1 != int(n) {
		return 0, fmt.Errorf("unexpected file len: %s", resp)
	}
	copy(p, resp[idx+1:])
	return int(n), nil
}
