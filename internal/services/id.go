package services

import (
	"strings"

	"github.com/google/uuid"
)

// shortID returns a compact random identifier of n hex-ish characters.
func shortID(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > 0 && n < len(s) {
		return s[:n]
	}
	return s
}

func newRecordID() string { return shortID(12) }
