package collections

import "errors"

var (
	ErrNotFound     = errors.New("collection not found")
	ErrInvalidInput = errors.New("invalid input")
)
