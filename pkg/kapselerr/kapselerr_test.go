package kapselerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatsOperationAndKind(t *testing.T) {
	err := New(SetupFailure, "mount overlay", errors.New("device busy"))
	assert.Contains(t, err.Error(), "setup failure")
	assert.Contains(t, err.Error(), "mount overlay")
	assert.Contains(t, err.Error(), "device busy")
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	err := New(ChildInitFailure, "pivot_root", underlying)
	assert.Same(t, underlying, errors.Unwrap(err))
}

func TestIsMatchesByKind(t *testing.T) {
	err := New(CleanupFailure, "rmdir", errors.New("busy"))
	assert.True(t, errors.Is(err, Sentinel(CleanupFailure)))
	assert.False(t, errors.Is(err, Sentinel(SetupFailure)))
}
