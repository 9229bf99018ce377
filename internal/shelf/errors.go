package shelf

import (
	"errors"
	"fmt"
)

// Expected outcomes. Callers surface these as notices rather than failures.
var (
	ErrAlreadyOnShelf = errors.New("book is already on your shelf")
	ErrNoActiveReread = errors.New("no re-read in progress")
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrNotFound         = errors.New("shelf entry not found")
	ErrBookNotFound     = errors.New("book not found")
	ErrInvalidStatus    = errors.New("invalid reading status")
	ErrInvalidState     = errors.New("re-reads can only start from a completed book")
	ErrRereadInProgress = errors.New("a re-read is already in progress")
	ErrInvalidEdition   = errors.New("edition key is required")
	ErrConcurrentUpdate = errors.New("shelf entry was modified concurrently")
)

// PersistenceError is a store failure not explained by a known constraint.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsNotice reports whether err is an expected, non-fatal outcome.
func IsNotice(err error) bool {
	return errors.Is(err, ErrAlreadyOnShelf) || errors.Is(err, ErrNoActiveReread)
}
