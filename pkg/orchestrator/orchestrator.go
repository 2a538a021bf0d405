// Package orchestrator owns the state machine for a single `run`:
// Created -> SetupOK -> Cloned -> ChildExited -> CleanedUp, with a
// SetupFailed branch that still drives best-effort cleanup. It is the
// one component that talks to every other package: it asks the image
// store and overlay provisioner to prepare the filesystem, launches the
// network worker, re-execs itself into the child's namespaces, waits for
// it to exit, and then reverses every resource it allocated.
package orchestrator

import (
	"encoding/json"
	"os"
	"os/exec"
	"syscall"

	"github.com/kapsel-run/kapsel/pkg/cgroup"
	"github.com/kapsel-run/kapsel/pkg/childproc"
	"github.com/kapsel-run/kapsel/pkg/config"
	"github.com/kapsel-run/kapsel/pkg/handoff"
	"github.com/kapsel-run/kapsel/pkg/history"
	"github.com/kapsel-run/kapsel/pkg/identity"
	"github.com/kapsel-run/kapsel/pkg/imagebuilder"
	"github.com/kapsel-run/kapsel/pkg/imagestore"
	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/kapsellog"
	"github.com/kapsel-run/kapsel/pkg/netfabric"
	"github.com/kapsel-run/kapsel/pkg/overlay"
	"github.com/kapsel-run/kapsel/pkg/types"
)

// State is a point in the run's lifecycle.
type State int

const (
	Created State = iota
	SetupOK
	SetupFailed
	Cloned
	ChildExited
	CleanedUp
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case SetupOK:
		return "setup-ok"
	case SetupFailed:
		return "setup-failed"
	case Cloned:
		return "cloned"
	case ChildExited:
		return "child-exited"
	case CleanedUp:
		return "cleaned-up"
	default:
		return "unknown"
	}
}

// ChildEnvVar carries the JSON-encoded container record to the re-exec'd
// child; the hidden __child__ command reads it and hands it to
// pkg/nsinit.
const ChildEnvVar = "KAPSEL_CONTAINER"

// Orchestrator drives a single container run end to end.
type Orchestrator struct {
	Container types.Container
	Bridge    netfabric.Options
	state     State

	group   *cgroup.Group
	ledger  *history.Ledger
	run     history.Run
	exitErr error
	netErr  chan error
}

// New assembles the container record from run options and host defaults,
// minting a fresh id when the caller did not pin one.
func New(opts types.RunOptions, defaults config.Defaults) *Orchestrator {
	id := opts.ContainerId
	if id == "" || !identity.Valid(id) {
		id = identity.New()
	}

	limits := opts.Limits
	if limits.ProcessNumber == "" {
		limits = defaults.Limits
	}

	c := types.Container{
		Id:          id,
		Distro:      opts.Distro,
		RootDir:     opts.RootDir,
		Command:     opts.Command,
		CurrentUser: os.Getenv("SUDO_USER"),
		Veth:        netfabric.NamesFor(id),
		Limits:      limits,
		BuildImage:  opts.BuildImage,
		Nameserver:  defaults.Bridge.Nameserver,
	}

	bridge := netfabric.Options{
		BridgeName: defaults.Bridge.Name,
		BridgeIP:   defaults.Bridge.IP,
		Prefix:     defaults.Bridge.Prefix,
		Nameserver: defaults.Bridge.Nameserver,
	}

	return &Orchestrator{Container: c, Bridge: bridge, state: Created}
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Setup prepares the filesystem and network before the child is cloned:
// image store, overlay provisioning, chown, cgroup leaves, and the
// detached network worker goroutine.
func (o *Orchestrator) Setup() (*handoff.Synchronizer, error) {
	if err := config.EnsureLayout(o.Container.RootDir); err != nil {
		o.state = SetupFailed
		return nil, kapselerr.New(kapselerr.SetupFailure, "ensure layout", err)
	}

	if o.Container.BuildImage {
		if err := imagestore.EnsureBuildExtract(o.Container.Distro, o.Container.RootDir, o.Container.RootfsDir()); err != nil {
			o.state = SetupFailed
			return nil, err
		}
		if err := os.MkdirAll(o.Container.ContainerDir(), 0o755); err != nil {
			o.state = SetupFailed
			return nil, kapselerr.New(kapselerr.SetupFailure, "mkdir container dir", err)
		}
	} else {
		lowerDir, err := imagestore.Ensure(o.Container.Distro, o.Container.RootDir)
		if err != nil {
			o.state = SetupFailed
			return nil, err
		}
		o.Container.LowerDir = lowerDir

		if err := overlay.Provision(o.Container); err != nil {
			o.state = SetupFailed
			return nil, err
		}
	}

	// Creates the pids/cpu/memory leaf directories up front so Destroy
	// has something to own even if the child never reaches its own
	// cgroup.New call. The child creates the same, already-existing
	// leaves again later to apply its own pid to them; MkdirAll makes
	// that second New idempotent.
	grp, err := cgroup.New(o.Container.Id, o.Container.Limits)
	if err != nil {
		o.state = SetupFailed
		return nil, err
	}
	o.group = grp

	if err := netfabric.EnsureBridge(o.Bridge); err != nil {
		o.state = SetupFailed
		return nil, err
	}
	ip, err := netfabric.AllocateIP(o.Bridge)
	if err != nil {
		o.state = SetupFailed
		return nil, err
	}
	o.Container.IP = ip

	sync, err := handoff.New()
	if err != nil {
		o.state = SetupFailed
		return nil, err
	}

	o.netErr = make(chan error, 1)
	go func() {
		o.netErr <- netfabric.Worker(sync, o.Bridge, o.Container.Id, o.Container.Veth, o.Container.IP)
	}()

	if o.ledger != nil {
		run, err := o.ledger.Start(o.Container.Id, string(o.Container.Distro), joinCommand(o.Container.Command), o.Container.BuildImage)
		if err != nil {
			kapsellog.Warnf("history start: %v", err)
		} else {
			o.run = run
		}
	}

	o.state = SetupOK
	return sync, nil
}

// Run re-execs /proc/self/exe into a fresh pid/uts/mount/net namespace
// set, attaches interactively if the host stdin is a terminal, and waits
// for the child to exit. It returns the child's exit code.
func (o *Orchestrator) Run(sync *handoff.Synchronizer) (int, error) {
	payload, err := encodeContainer(o.Container)
	if err != nil {
		return 1, kapselerr.New(kapselerr.SetupFailure, "encode container", err)
	}

	self, err := os.Executable()
	if err != nil {
		return 1, kapselerr.New(kapselerr.SetupFailure, "resolve self", err)
	}

	cmd := exec.Command(self, "__child__")
	cmd.Env = append(os.Environ(), ChildEnvVar+"="+payload)
	cmd.ExtraFiles = sync.ExtraFiles()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS | syscall.CLONE_NEWNS | syscall.CLONE_NEWNET,
	}

	runErr := childproc.Attach(cmd)
	if cmd.Process != nil {
		o.Container.ChildPid = cmd.Process.Pid
	}
	o.state = Cloned
	o.exitErr = runErr
	o.state = ChildExited

	if o.netErr != nil {
		// The child has already exited by this point. In the normal
		// case the network worker reached its own completion before
		// the child did (the child's last handoff wait is for the
		// worker's final post), so this cancel signal lands on an
		// already-finished worker and is simply never read. But if the
		// child died earlier in its init sequence, the worker can still
		// be blocked waiting for a post the child will never make;
		// cancel unblocks it immediately instead of leaving Run (and
		// the cleanup it gates) hung forever.
		_ = handoff.Post(sync.Cancel)
		if err := <-o.netErr; err != nil {
			kapsellog.Warnf("network worker: %v", err)
		}
	}

	if runErr == nil {
		return 0, nil
	}
	return exitCodeOf(runErr), nil
}

func exitCodeOf(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(interface{ ExitStatus() int }); ok {
			return ws.ExitStatus()
		}
	}
	return 1
}

// Cleanup reverses every resource the run allocated. Each step is
// independent: a failure in one is logged and the rest still run.
func (o *Orchestrator) Cleanup() {
	if o.Container.BuildImage {
		if err := imagebuilder.Build(o.Container.RootDir, o.Container.Id, o.Container.RootfsDir()); err != nil {
			kapsellog.Warnf("build image: %v", err)
		}
	}

	cleanedUp := true

	if err := overlay.Teardown(o.Container); err != nil {
		kapsellog.Warnf("overlay teardown: %v", err)
		cleanedUp = false
	}

	if o.group != nil {
		if err := o.group.Destroy(); err != nil {
			kapsellog.Warnf("cgroup destroy: %v", err)
			cleanedUp = false
		}
	}

	if err := netfabric.Teardown(o.Container.Id, o.Container.Veth); err != nil {
		kapsellog.Warnf("network teardown: %v", err)
		cleanedUp = false
	}

	if o.ledger != nil && o.run.ID != 0 {
		exitCode := 0
		if o.exitErr != nil {
			exitCode = exitCodeOf(o.exitErr)
		}
		if err := o.ledger.Finish(o.run.ID, exitCode, cleanedUp); err != nil {
			kapsellog.Warnf("history finish: %v", err)
		}
	}

	o.state = CleanedUp
}

func joinCommand(command []string) string {
	s := ""
	for i, tok := range command {
		if i > 0 {
			s += " "
		}
		s += tok
	}
	return s
}

// AttachLedger wires a history ledger into the orchestrator; callers
// that do not care about run history can leave this unset.
func (o *Orchestrator) AttachLedger(l *history.Ledger) { o.ledger = l }

func encodeContainer(c types.Container) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeContainer reverses encodeContainer; used by the hidden __child__
// command to recover the container record from its environment.
func DecodeContainer(payload string) (types.Container, error) {
	var c types.Container
	err := json.Unmarshal([]byte(payload), &c)
	return c, err
}
