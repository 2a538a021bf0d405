// Package nsinit is the entry point that runs inside a container's fresh
// pid/uts/mount/network namespaces: it rendezvous with the network
// worker over the handoff eventfds, applies the cgroup limits to its own
// pid, changes root, builds the minimal /dev, resets the environment,
// and finally execs the user command through a shell.
package nsinit

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/kapsel-run/kapsel/pkg/cgroup"
	"github.com/kapsel-run/kapsel/pkg/handoff"
	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/kapsellog"
	"github.com/kapsel-run/kapsel/pkg/overlay"
	"github.com/kapsel-run/kapsel/pkg/types"
	"golang.org/x/sys/unix"
)

// Config is everything the child needs that it cannot recompute from
// inside the new namespaces: the fully resolved container record.
type Config struct {
	Container types.Container
}

// Run executes the full ordered child-init sequence and returns the exit
// code the user command produced, or a non-zero status if any step
// before the final exec failed.
func Run(cfg Config) int {
	sync := handoff.FromInheritedFDs()
	defer sync.Close()

	pid := os.Getpid()

	if err := bindMountNetns(cfg.Container.Id, sync); err != nil {
		kapsellog.Errorf("netns handoff: %v", err)
		return 1
	}

	grp, err := cgroup.New(cfg.Container.Id, cfg.Container.Limits)
	if err != nil {
		kapsellog.Errorf("cgroup create: %v", err)
		return 1
	}
	if err := grp.Apply(pid); err != nil {
		kapsellog.Errorf("cgroup apply: %v", err)
		return 1
	}

	if err := overlay.MakeRootPrivate(); err != nil {
		kapsellog.Errorf("mark root private: %v", err)
		return 1
	}

	if !cfg.Container.BuildImage {
		c := cfg.Container
		if err := overlay.MountMerged(c.LowerDir, c.UpperDir(), c.WorkDir(), c.RootfsDir()); err != nil {
			kapsellog.Errorf("mount overlay: %v", err)
			return 1
		}
	}

	if err := changeRoot(cfg.Container); err != nil {
		kapsellog.Errorf("change root: %v", err)
		return 1
	}

	if err := mountEssential(); err != nil {
		kapsellog.Errorf("mount /proc /sys /dev: %v", err)
		return 1
	}

	if err := populateDev(); err != nil {
		kapsellog.Errorf("populate /dev: %v", err)
		return 1
	}

	resetEnvironment()

	if err := appendNameserver(cfg.Container.Nameserver); err != nil {
		kapsellog.Errorf("write resolv.conf: %v", err)
		return 1
	}

	if err := unix.Sethostname([]byte(cfg.Container.Id)); err != nil {
		kapsellog.Errorf("sethostname: %v", err)
		return 1
	}

	// Second rendezvous: network plumbing is complete only after this
	// returns. Poll init-proceed and net-err together so a worker
	// failure unblocks us immediately instead of hanging on a signal
	// that will never come.
	if err := handoff.WaitEither(sync.InitProceed, sync.NetErr); err != nil {
		kapsellog.Errorf("wait for network: %v", err)
		return 1
	}

	code := runCommand(cfg.Container.Command)

	unmountEssential()

	return code
}

func bindMountNetns(id string, sync *handoff.Synchronizer) error {
	// Watch net-err alongside ns-ready: if the worker's very first step
	// (ip netns add) fails, ns-ready is never posted and a plain Wait
	// here would block forever.
	if err := handoff.WaitEither(sync.NsReady, sync.NetErr); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "wait ns-ready", err)
	}

	target := "/var/run/netns/" + id
	if err := os.MkdirAll("/var/run/netns", 0o755); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mkdir /var/run/netns", err)
	}
	// ip netns add already created this mountpoint on the shared /run
	// tmpfs before posting ns-ready; the child's mount namespace is
	// cloned from the same superblock so the entry is already visible
	// here. Only create it when missing rather than requiring absence.
	f, err := os.OpenFile(target, os.O_CREATE, 0o644)
	if err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "create "+target, err)
	}
	f.Close()

	if err := unix.Mount("/proc/self/ns/net", target, "", unix.MS_BIND, ""); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "bind mount netns", err)
	}

	return handoff.Post(sync.InitProceed)
}

func changeRoot(c types.Container) error {
	if c.BuildImage {
		return unix.Chroot(c.RootfsDir())
	}
	return pivotRoot(c.RootfsDir())
}

func pivotRoot(newRoot string) error {
	tempDir := newRoot + "/temp"
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mkdir "+tempDir, err)
	}
	if err := unix.PivotRoot(newRoot, tempDir); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "pivot_root", err)
	}
	if err := os.Chdir("/"); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "chdir /", err)
	}
	if err := unix.Unmount("/temp", unix.MNT_DETACH); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "detach-umount /temp", err)
	}
	if err := os.Remove("/temp"); err != nil {
		kapsellog.Warnf("rmdir /temp: %v", err)
	}
	return nil
}

func mountEssential() error {
	if err := unix.Mount("proc", "/proc", "proc", 0, ""); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mount /proc", err)
	}
	if err := unix.Mount("sysfs", "/sys", "sysfs", 0, ""); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mount /sys", err)
	}
	devFlags := uintptr(unix.MS_NOSUID | unix.MS_STRICTATIME)
	if err := unix.Mount("tmpfs", "/dev", "tmpfs", devFlags, "mode=755"); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mount /dev", err)
	}
	return nil
}

func unmountEssential() {
	for _, path := range []string{"/dev/pts", "/dev", "/sys", "/proc"} {
		if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
			kapsellog.Warnf("unmount %s: %v", path, err)
		}
	}
}

type devNode struct {
	name       string
	major, min uint32
}

var charDevices = []devNode{
	{"null", 1, 3},
	{"zero", 1, 5},
	{"random", 1, 8},
	{"urandom", 1, 9},
	{"console", 136, 1},
	{"tty", 5, 0},
	{"full", 1, 7},
}

func populateDev() error {
	if err := os.MkdirAll("/dev/pts", 0o755); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mkdir /dev/pts", err)
	}
	ptsFlags := uintptr(unix.MS_NOSUID | unix.MS_NOEXEC)
	ptsData := "newinstance,ptmxmode=0666,mode=620,gid=5"
	if err := unix.Mount("devpts", "/dev/pts", "devpts", ptsFlags, ptsData); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mount devpts", err)
	}

	if err := os.Symlink("/proc/self/fd", "/dev/fd"); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "symlink /dev/fd", err)
	}
	std := map[string]string{
		"/dev/stdin":  "/proc/self/fd/0",
		"/dev/stdout": "/proc/self/fd/1",
		"/dev/stderr": "/proc/self/fd/2",
	}
	for link, target := range std {
		if err := os.Symlink(target, link); err != nil {
			return kapselerr.New(kapselerr.ChildInitFailure, "symlink "+link, err)
		}
	}

	for _, d := range charDevices {
		path := "/dev/" + d.name
		devT := unix.Mkdev(d.major, d.min)
		if err := unix.Mknod(path, unix.S_IFCHR|0o666, int(devT)); err != nil {
			return kapselerr.New(kapselerr.ChildInitFailure, "mknod "+path, err)
		}
	}
	return nil
}

func resetEnvironment() {
	os.Clearenv()
	os.Setenv("HOME", "/")
	os.Setenv("DISPLAY", ":0.0")
	os.Setenv("TERM", "xterm-256color")
	os.Setenv("PATH", "/bin:/sbin:/usr/bin:/usr/sbin:/src:/usr/local/bin:/usr/local/sbin")
}

func appendNameserver(ns string) error {
	f, err := os.OpenFile("/etc/resolv.conf", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "open /etc/resolv.conf", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "nameserver %s\n", ns)
	return err
}

func runCommand(command []string) int {
	if len(command) == 0 {
		return 0
	}
	shellCmd := exec.Command("/bin/sh", "-c", joinCommand(command))
	shellCmd.Stdin = os.Stdin
	shellCmd.Stdout = os.Stdout
	shellCmd.Stderr = os.Stderr

	err := shellCmd.Run()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	kapsellog.Errorf("user command failed: %v", err)
	return 1
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
