package object

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input. It is raised before any network
// or disk interaction, so retrying with corrected input is always safe.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UploadError reports a backend rejection or network failure during transfer.
// Code carries the backend error code when one was returned.
type UploadError struct {
	Code    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsUpload reports whether err is (or wraps) an UploadError.
func IsUpload(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}
