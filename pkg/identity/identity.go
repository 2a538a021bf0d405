// Package identity generates the container id: a 12-character lowercase
// alphanumeric string that is the single naming key for every host-wide
// resource a run creates (cgroup paths, netns name, veth names, the
// container directory). Derived from a fresh uuid.New().String() rather
// than a hand-rolled random alphabet.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

const length = 12

// New returns a fresh 12-char lowercase alphanumeric id.
func New() string {
	for {
		raw := strings.ToLower(strings.ReplaceAll(uuid.New().String(), "-", ""))
		id := alnumOnly(raw)
		if len(id) >= length {
			return id[:length]
		}
		// exceedingly unlikely: uuid hex chars are always alnum, but guard
		// against an unexpected format change rather than loop forever.
	}
}

func alnumOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s could be a Kapsel container id: exactly 12
// lowercase alphanumeric characters.
func Valid(s string) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
