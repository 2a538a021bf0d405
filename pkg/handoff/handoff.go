// Package handoff implements the two-phase rendezvous between the
// parent's network worker and the child init process, using Linux
// eventfd objects opened in EFD_SEMAPHORE mode: each read blocks until
// the counter is nonzero and then decrements it by exactly one, the same
// contract a counting semaphore gives sem_wait/sem_post. Three of them
// (ns-ready, init-proceed, net-err) are anonymous fds inherited across
// the child re-exec rather than named kernel objects, so they cannot
// collide with another concurrent run's handoff; a fourth (cancel) never
// leaves the parent and lets the orchestrator unblock its own network
// worker if the child dies before completing its side of the handoff.
package handoff

import (
	"encoding/binary"
	"os"

	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"golang.org/x/sys/unix"
)

// ErrHandoffAborted is the sentinel kapselerr WaitEither returns when it
// wakes on the secondary fd instead of the primary one: the child
// observes it when the network worker posts NetErr instead of
// InitProceed, and the network worker observes it when the orchestrator
// posts Cancel instead of the child ever reaching InitProceed.
var ErrHandoffAborted = kapselerr.New(kapselerr.SetupFailure, "handoff aborted", nil)

// InheritedFDStart is the file descriptor number of the first
// ExtraFiles-inherited fd in a re-exec'd child process (0, 1, 2 are
// always stdin/stdout/stderr).
const InheritedFDStart = 3

// Synchronizer owns the parent-side file descriptors for the handoff's
// eventfd objects: ns-ready, init-proceed, a supplementary error channel
// the network worker uses to unblock the child if setup fails instead
// of letting it hang forever waiting on init-proceed, and a cancel
// channel the orchestrator uses symmetrically to unblock the network
// worker if the child exits before ever reaching init-proceed. Cancel is
// parent-internal only: unlike the other three, it is never inherited by
// the re-exec'd child.
type Synchronizer struct {
	NsReady     *os.File
	InitProceed *os.File
	NetErr      *os.File
	Cancel      *os.File
}

// New creates the four eventfd objects, all initialized to a counter of
// 0.
func New() (*Synchronizer, error) {
	nsReady, err := newEventfd()
	if err != nil {
		return nil, kapselerr.New(kapselerr.SetupFailure, "eventfd ns-ready", err)
	}
	initProceed, err := newEventfd()
	if err != nil {
		nsReady.Close()
		return nil, kapselerr.New(kapselerr.SetupFailure, "eventfd init-proceed", err)
	}
	netErr, err := newEventfd()
	if err != nil {
		nsReady.Close()
		initProceed.Close()
		return nil, kapselerr.New(kapselerr.SetupFailure, "eventfd net-err", err)
	}
	cancel, err := newEventfd()
	if err != nil {
		nsReady.Close()
		initProceed.Close()
		netErr.Close()
		return nil, kapselerr.New(kapselerr.SetupFailure, "eventfd cancel", err)
	}
	return &Synchronizer{NsReady: nsReady, InitProceed: initProceed, NetErr: netErr, Cancel: cancel}, nil
}

func newEventfd() (*os.File, error) {
	// No EFD_CLOEXEC: exec.Cmd.ExtraFiles requires the fd to survive
	// exec so the re-exec'd child inherits it.
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), "eventfd"), nil
}

// ExtraFiles returns the three fds in the fixed order the child expects
// them (see FromInheritedFDs), for use as exec.Cmd.ExtraFiles. Go numbers
// inherited extra files starting at fd 3 in the child.
func (s *Synchronizer) ExtraFiles() []*os.File {
	return []*os.File{s.NsReady, s.InitProceed, s.NetErr}
}

// FromInheritedFDs reconstructs a Synchronizer in the child process from
// the three fds the parent attached via ExtraFiles, which Go always
// places at InheritedFDStart, InheritedFDStart+1, InheritedFDStart+2.
func FromInheritedFDs() *Synchronizer {
	return &Synchronizer{
		NsReady:     os.NewFile(InheritedFDStart, "ns-ready"),
		InitProceed: os.NewFile(InheritedFDStart+1, "init-proceed"),
		NetErr:      os.NewFile(InheritedFDStart+2, "net-err"),
	}
}

// Close releases the parent's copies of the fds. Safe to call after the
// child has exited; does not affect the child's already-duplicated fds.
func (s *Synchronizer) Close() {
	s.NsReady.Close()
	s.InitProceed.Close()
	s.NetErr.Close()
	s.Cancel.Close()
}

// Post increments f's counter by one, waking exactly one blocked reader.
func Post(f *os.File) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, 1)
	_, err := f.Write(buf)
	return err
}

// Wait blocks until f's counter is nonzero, then decrements it by one.
func Wait(f *os.File) error {
	buf := make([]byte, 8)
	_, err := f.Read(buf)
	return err
}

// WaitEither blocks until either primary or abort becomes readable,
// whichever side of the rendezvous posts first. Both eventfds are
// pollable exactly like any other fd, so this is a plain poll(2) over
// the two rather than a blocking read on just one: a waiter blocked on
// a bare Wait(primary) would hang forever if its counterpart can never
// reach the point where it posts primary. Two unrelated pairs in this
// engine use it for that reason: the child waits on (InitProceed,
// NetErr) so a network setup failure unblocks it instead of leaving it
// stuck waiting on a post the worker will never make, and the network
// worker waits on (InitProceed, Cancel) so a child that dies before
// bind-mounting its netns unblocks the worker instead of leaving it
// stuck waiting on a post the child will never make. Returns
// ErrHandoffAborted if abort fires first.
func WaitEither(primary, abort *os.File) error {
	pfds := []unix.PollFd{
		{Fd: int32(primary.Fd()), Events: unix.POLLIN},
		{Fd: int32(abort.Fd()), Events: unix.POLLIN},
	}
	for {
		_, err := unix.Poll(pfds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return kapselerr.New(kapselerr.ChildInitFailure, "poll handoff fds", err)
		}
		if pfds[1].Revents&unix.POLLIN != 0 {
			_ = Wait(abort)
			return ErrHandoffAborted
		}
		if pfds[0].Revents&unix.POLLIN != 0 {
			return Wait(primary)
		}
	}
}
