package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsTwelveLowercaseAlnum(t *testing.T) {
	id := New()
	assert.Len(t, id, 12)
	assert.True(t, Valid(id))
	for _, r := range id {
		assert.True(t, (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
	}
}

func TestNewIsUnique(t *testing.T) {
	assert.NotEqual(t, New(), New())
}

func TestValidRejectsBadInput(t *testing.T) {
	cases := []string{"", "short", "has-a-dash!!", "UPPERCASE12", "thisidiswaytoolongtobevalid"}
	for _, c := range cases {
		assert.False(t, Valid(c), "expected %q to be invalid", c)
	}
}
