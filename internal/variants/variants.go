// Package variants generates reduced-size JPEG derivatives (a square
// thumbnail and a bounded-width medium rendition) for stored images.
package variants

import (
	"errors"
	"fmt"
)

// Derivative dimensions and JPEG quality, fixed across backends so paths and
// output stay reproducible.
const (
	ThumbSize    = 200
	ThumbQuality = 75

	MediumMaxWidth = 1200
	MediumQuality  = 85
)

// Variant type tags used in derivative storage keys.
const (
	TypeThumb  = "thumb"
	TypeMedium = "medium"
)

const defaultBatchWorkers = 3

// supportedExtensions lists the decodable source formats. A catalog record
// whose storage key falls outside this set is rejected before any fetch, even
// when its recorded MIME type claims an image.
var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".tiff": {},
	".bmp":  {},
	".gif":  {},
}

// ContentError marks source material that can never be processed: not an
// image, truncated, or otherwise undecodable. Retrying is pointless.
type ContentError struct {
	Reason string
	Err    error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unprocessable image: %s: %v", e.Reason, e.Err)
	}
	return "unprocessable image: " + e.Reason
}

func (e *ContentError) Unwrap() error { return e.Err }

// IsContent reports whether err marks unprocessable source material.
func IsContent(err error) bool {
	var ce *ContentError
	return errors.As(err, &ce)
}

// PersistenceError marks a catalog write failure after derivatives were
// already stored.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record variant paths: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
