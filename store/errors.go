package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrStoreUnavailable is matched by every transport or server failure returned
// from a Store.
var ErrStoreUnavailable = errors.New("store unavailable")

// UnavailableError records the failed operation and the underlying cause.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unavailable wraps err as an UnavailableError, nil stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Op: op, Err: err}
}
