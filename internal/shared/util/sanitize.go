package util

import (
	"errors"
	"strings"
)

// SanitizeFileName reduces a client-supplied file name to characters that are
// safe inside a storage key: alphanumerics, '.', '-' and '_'. Everything after
// the last path separator is kept, all other characters are dropped. Returns
// an error when nothing usable remains.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if idx := strings.LastIndexAny(s, "/\\"); idx >= 0 {
		s = s[idx+1:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "", errors.New("invalid file name")
	}
	return out, nil
}

// FileExt returns the lowercased extension of name including the dot, or ""
// when the name has none.
func FileExt(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx:])
}
