// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout marks an operation that exceeded its configured bound
	ErrTimeout = errors.New("timeout")
	// ErrTransport marks a fault of the underlying port
	ErrTransport = errors.New("transport failure")
	// ErrLinkClosed is returned for I/O on a closed link
	ErrLinkClosed = errors.New("serial link closed")
	// ErrStreamBusy is returned when a stream is already leased by another operation
	ErrStreamBusy = errors.New("stream busy")
)

// IOError describes a failed raw read or write on the serial link
type IOError struct {
	Op    string
	Kind  error
	Limit time.Duration
	Err   error
}

func (e *IOError) Error() string {
	if errors.Is(e.Kind, ErrTimeout) {
		return fmt.Sprintf("%s timeout after %s", e.Op, e.Limit)
	}
	if e.Err != nil {
		return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serial %s failed", e.Op)
}

func (e *IOError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsTimeout reports whether err is a bounded-wait timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
