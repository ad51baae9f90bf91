package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelection is returned when selecting an id that is not in the current results
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNoSelection is returned when confirming without a selection
	ErrNoSelection = errors.New("no selection")
	// ErrUnknownField is returned by a host for a field it does not define
	ErrUnknownField = errors.New("unknown field")
	// ErrClosed is returned by components used after teardown
	ErrClosed = errors.New("closed")
)

// LookupError wraps a failure of the lookup backend
type LookupError struct {
	Query string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q failed: %v", e.Query, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Message is the text surfaced to the user
func (e *LookupError) Message() string {
	if e.Err == nil {
		return "search failed"
	}
	return e.Err.Error()
}
