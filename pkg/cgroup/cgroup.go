// Package cgroup manages a legacy (v1) cgroup hierarchy rooted at
// /sys/fs/cgroup with one leaf directory per controller (pids, memory,
// cpu) per container. Each controller leaf is a small
// path+WriteUint/WriteFile accessor, attached to the contained process
// by pid and torn down with a tolerant rmdir that accepts a still-busy
// directory as a benign kernel residual rather than a failure.
package cgroup

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/types"
	"golang.org/x/sys/unix"
)

const hierarchyRoot = "/sys/fs/cgroup"

// controller is a single leaf directory accessor, e.g.
// /sys/fs/cgroup/pids/<id>.
type controller struct {
	path string
}

func (c *controller) WriteFile(name string, content []byte) error {
	return os.WriteFile(filepath.Join(c.path, name), content, 0o700)
}

func (c *controller) WriteUint(name string, v uint64) error {
	return c.WriteFile(name, []byte(strconv.FormatUint(v, 10)))
}

func (c *controller) WriteString(name string, v string) error {
	return c.WriteFile(name, []byte(v))
}

// Group is the per-container trio of cgroup v1 leaves.
type Group struct {
	id     string
	limits types.ResourceLimits

	pids   *controller
	memory *controller
	cpu    *controller
}

// New creates the pids/memory/cpu leaf directories for id under
// /sys/fs/cgroup. It does not attach any process yet; call Apply once the
// target pid is known.
func New(id string, limits types.ResourceLimits) (*Group, error) {
	g := &Group{
		id:     id,
		limits: limits,
		pids:   &controller{path: filepath.Join(hierarchyRoot, "pids", id)},
		memory: &controller{path: filepath.Join(hierarchyRoot, "memory", id)},
		cpu:    &controller{path: filepath.Join(hierarchyRoot, "cpu", id)},
	}
	for _, c := range []*controller{g.pids, g.memory, g.cpu} {
		if err := os.MkdirAll(c.path, 0o755); err != nil && !os.IsExist(err) {
			return nil, kapselerr.New(kapselerr.SetupFailure, "mkdir "+c.path, err)
		}
	}
	return g, nil
}

// Apply writes the resource limits and attaches pid to all three
// controllers. Apply is always called from the child with its own pid,
// so the write unambiguously targets the contained process rather than
// racing the parent's view of a pid that may already have changed state.
func (g *Group) Apply(pid int) error {
	if err := g.pids.WriteString("pids.max", g.limits.ProcessNumber); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "pids.max", err)
	}
	if err := g.pids.WriteUint("notify_on_release", 1); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "notify_on_release", err)
	}
	if err := g.pids.WriteUint("cgroup.procs", uint64(pid)); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "pids cgroup.procs", err)
	}

	if err := g.memory.WriteUint("tasks", uint64(pid)); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "memory tasks", err)
	}
	if err := g.memory.WriteString("memory.limit_in_bytes", g.limits.Memory); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "memory.limit_in_bytes", err)
	}
	if err := g.memory.WriteString("memory.memsw.limit_in_bytes", g.limits.SwapMemory); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "memory.memsw.limit_in_bytes", err)
	}

	if err := g.cpu.WriteUint("tasks", uint64(pid)); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "cpu tasks", err)
	}
	if err := g.cpu.WriteUint("cpu.shares", uint64(g.limits.CPUShare)); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "cpu.shares", err)
	}
	return nil
}

// Destroy removes the three leaf directories. Both EBUSY and ENOTEMPTY
// are tolerated: the kernel can leave either behind briefly while the
// last attached process's exit is still being reaped.
func (g *Group) Destroy() error {
	var firstErr error
	for _, c := range []*controller{g.pids, g.memory, g.cpu} {
		err := os.Remove(c.path)
		if err == nil || os.IsNotExist(err) {
			continue
		}
		if errors.Is(err, unix.EBUSY) || errors.Is(err, unix.ENOTEMPTY) {
			continue
		}
		if firstErr == nil {
			firstErr = kapselerr.New(kapselerr.CleanupFailure, "rmdir "+c.path, err)
		}
	}
	return firstErr
}
