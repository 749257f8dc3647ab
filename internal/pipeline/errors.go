package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errSinkNotInit = errors.New("sink must be initialized before registering with pipeline")
	errStorePanic  = errors.New("store panicked during flush")
	errFinalPanic  = errors.New("final flush panicked")
)

// StoreError is the failure of a single store during a flush.
type StoreError struct {
	Store string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store '%s': %s", e.Store, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// FlushError aggregates the store failures of a single flush. All stores
// are flushed even if an earlier one failed.
type FlushError struct {
	Kind   Kind
	Stores []*StoreError
}

func (e *FlushError) Error() string {
	msgs := make([]string, 0, len(e.Stores))
	for _, s := range e.Stores {
		msgs = append(msgs, s.Error())
	}

	return fmt.Sprintf("%s flush failed at store '%s' (%d failed): %s",
		e.Kind, e.Stores[0].Store, len(e.Stores), strings.Join(msgs, "; "))
}

// Unwrap returns the errors of all failed stores.
func (e *FlushError) Unwrap() []error {
	out := make([]error, 0, len(e.Stores))
	for _, s := range e.Stores {
		out = append(out, s)
	}
	return out
}

// Failed returns the names of the stores that failed to flush, in flush order.
func (e *FlushError) Failed() []string {
	out := make([]string, 0, len(e.Stores))
	for _, s := range e.Stores {
		out = append(out, s.Store)
	}
	return out
}
