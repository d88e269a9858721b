package files

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidInput = errors.New("invalid input")
)

// PersistenceError marks a catalog failure that happened after the object
// itself was stored, so callers can tell a broken record apart from a
// failed transfer.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
