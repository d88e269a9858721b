package collections

import "time"

// Collection groups uploaded files under one shareable namespace. UniqueID is
// the public identifier used in URLs and storage keys; ID is the internal
// catalog key.
type Collection struct {
	ID          int64
	UniqueID    string
	Name        string
	Description string
	CreatedAt   time.Time
}
