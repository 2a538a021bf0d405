package netfabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesForTruncatesToNineChars(t *testing.T) {
	veth := NamesFor("abcdefghijkl")
	assert.Equal(t, "veth0@abcdefghi", veth.Inside)
	assert.Equal(t, "veth1@abcdefghi", veth.Outside)
}

func TestNamesForShortId(t *testing.T) {
	veth := NamesFor("abc")
	assert.Equal(t, "veth0@abc", veth.Inside)
	assert.Equal(t, "veth1@abc", veth.Outside)
}
