package handoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostThenWaitUnblocks(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Post(s.NsReady))

	done := make(chan error, 1)
	go func() { done <- Wait(s.NsReady) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after post")
	}
}

func TestWaitBlocksUntilPost(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- Wait(s.InitProceed) }()

	select {
	case <-done:
		t.Fatal("wait returned before any post")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, Post(s.InitProceed))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after post")
	}
}

func TestPostIsOneShotPerWaiter(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Post(s.NetErr))
	require.NoError(t, Wait(s.NetErr))

	done := make(chan error, 1)
	go func() { done <- Wait(s.NetErr) }()

	select {
	case <-done:
		t.Fatal("second wait returned without a matching post")
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, Post(s.NetErr))
	<-done
}

func TestWaitEitherUnblocksOnProceed(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Post(s.InitProceed))

	done := make(chan error, 1)
	go func() { done <- WaitEither(s.InitProceed, s.NetErr) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after post on proceed")
	}
}

func TestWaitEitherUnblocksOnNetErrInstead(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Post(s.NetErr))

	done := make(chan error, 1)
	go func() { done <- WaitEither(s.InitProceed, s.NetErr) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrHandoffAborted)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after post on net-err")
	}
}

func TestExtraFilesOrderMatchesFromInheritedFDs(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	files := s.ExtraFiles()
	require.Len(t, files, 3)
	require.Same(t, s.NsReady, files[0])
	require.Same(t, s.InitProceed, files[1])
	require.Same(t, s.NetErr, files[2])
}
