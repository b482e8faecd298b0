package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// HashStorageKey returns a filesystem-safe identifier for a namespace key.
func HashStorageKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Slugify builds a collision-resistant slug from an email local part,
// e.g. "jane.doe@example.com" -> "jane-doe-1a2b3c4d".
func Slugify(email string) string {
	base := email
	if at := strings.Index(base, "@"); at >= 0 {
		base = base[:at]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	var b strings.Builder
	lastDash := true
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "candidate"
	}
	return slug + "-" + uuid.NewString()[:8]
}
