package protocol

import (
	"bytes"
	"fmt"
)

type IDKind int

const (
	IDWithID IDKind = iota
	// IDAll is "-1": every thread (or process).
	IDAll
	// IDAny is "0": an arbitrary thread chosen by the stub.
	IDAny
)

// ID is a single process or thread id field.
type ID struct {
	Kind  IDKind
	Value uint64
}

func (id ID) String() string {
	switch id.Kind {
	case IDAll:
		return "-1"
	case IDAny:
		return "0"
	}
	return fmt.Sprintf("%x", id.Value)
}

// ThreadID is a thread-id as sent by the client, either "tid" or the
// multiprocess form "pPID.TID".
type ThreadID struct {
	HasPID bool
	PID    ID
	TID    ID
}

// SpecificID selects either one thread or all of them.
type SpecificID struct {
	All bool
	ID  uint64
}

func parseID(b []byte) (ID, error) {
	switch {
	case bytes.Equal(b, []byte("-1")):
		return ID{Kind: IDAll}, nil
	case bytes.Equal(b, []byte("0")):
		return ID{Kind: IDAny}, nil
	}
	v, err := ParseHex(b)
	if err != nil {
		return ID{}, err
	}
	return ID{Kind: IDWithID, Value: v}, nil
}

// ParseThreadID parses a thread-id field.
func ParseThreadID(b []byte) (ThreadID, error) {
	if len(b) > 0 && b[0] == 'p' {
		pid, tid, found := bytes.Cut(b[1:], []byte{'.'})
		p, err := parseID(pid)
		if err != nil {
			return ThreadID{}, err
		}
		t := ID{Kind: IDAll}
		if found {
			if t, err = parseID(tid); err != nil {
				return ThreadID{}, err
			}
		}
		return ThreadID{HasPID: true, PID: p, TID: t}, nil
	}
	t, err := parseID(b)
	if err != nil {
		return ThreadID{}, err
	}
	return ThreadID{TID: t}, nil
}
