package archiver

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a slot failed. Every kind ends up in the failure
// log; the kind only matters for diagnostics.
type ErrorKind int

const (
	// KindTransport covers connection failures and unexpected HTTP statuses.
	KindTransport ErrorKind = iota + 1
	// KindDecode means the payload violated the container or record format.
	KindDecode
	// KindWrite is a local persistence failure.
	KindWrite
	// KindConfig is a slot that cannot be attempted, e.g. an unknown instrument.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindWrite:
		return "write"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

var ErrUnknownInstrument = errors.New("unknown instrument")

type SlotError struct {
	Kind ErrorKind
	Slot Slot
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Slot.Symbol(), e.Slot.Date(), e.Kind, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or 0 when err is not a SlotError.
func KindOf(err error) ErrorKind {
	var se *SlotError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
