package discovery

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrOpenFailed      = errors.New("failed to open device")
	ErrAmbiguousDevice = errors.New("more than one device matches")
)

// ResolveError reports why no link could be produced for Filter
type ResolveError struct {
	Filter string
	Kind   error
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %q", e.Kind, e.Filter)
	}
	return fmt.Sprintf("%v: %q: %v", e.Kind, e.Filter, e.Err)
}

func (e *ResolveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
