// Package overlay manages the per-container upper/work/merged directory
// trio and the overlay union-mount built from them over the image
// store's cached lower-dir, using golang.org/x/sys/unix for the mount
// and unmount syscalls.
package overlay

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/types"
	"golang.org/x/sys/unix"
)

// Provision creates <container-dir>/{copy-on-write,work,rootfs} and chowns
// the container dir to the invoking user.
func Provision(c types.Container) error {
	for _, dir := range []string{c.UpperDir(), c.WorkDir(), c.RootfsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return kapselerr.New(kapselerr.SetupFailure, "mkdir "+dir, err)
		}
	}
	if err := chownToUser(c.ContainerDir(), c.CurrentUser); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "chown "+c.ContainerDir(), err)
	}
	return nil
}

func chownToUser(dir, username string) error {
	if username == "" {
		return nil
	}
	u, err := user.Lookup(username)
	if err != nil {
		return err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return err
	}
	cmd := exec.Command("chown", "-R", fmt.Sprintf("%d:%d", uid, gid), dir)
	return cmd.Run()
}

// MakeRootPrivate recursively marks / as a private mount so that mounts
// performed afterwards inside the child's mount namespace do not
// propagate back to the host.
func MakeRootPrivate() error {
	if err := unix.Mount("none", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mark / private", err)
	}
	return nil
}

// MountMerged mounts the overlay filesystem at mergedDir, combining
// lowerDir (the image store's cached distro rootfs), upperDir, and
// workDir, with the no-device flag.
func MountMerged(lowerDir, upperDir, workDir, mergedDir string) error {
	opts := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", lowerDir, upperDir, workDir)
	if err := unix.Mount("overlay", mergedDir, "overlay", unix.MS_NODEV, opts); err != nil {
		return kapselerr.New(kapselerr.ChildInitFailure, "mount overlay at "+mergedDir, err)
	}
	return nil
}

// Teardown unmounts the merged dir (best effort; it may already be gone
// if the child's pivot_root detached it) and removes the entire
// container directory recursively.
func Teardown(c types.Container) error {
	_ = unix.Unmount(c.RootfsDir(), unix.MNT_DETACH)
	if err := os.RemoveAll(c.ContainerDir()); err != nil {
		return kapselerr.New(kapselerr.CleanupFailure, "remove "+c.ContainerDir(), err)
	}
	return nil
}
