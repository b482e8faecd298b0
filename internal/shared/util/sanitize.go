package util

import (
	"errors"
	"strings"
)

// ErrBadFileName rejects uploaded resume file names that cannot be made safe.
var ErrBadFileName = errors.New("invalid file name")

// SanitizeFileName makes an uploaded resume file name safe for use inside a
// storage key: traversal sequences are rejected, path separators replaced.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrBadFileName
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", ErrBadFileName
	}
	return s, nil
}
