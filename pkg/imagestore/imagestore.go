// Package imagestore downloads and extracts a distribution rootfs once
// per distro, caches it on disk, and exposes its path as an overlay
// lower-dir. A cached rootfs is reused across runs: creation is gated on
// the target directory's absence. Archive download and extraction stay
// delegated to the wget and tar subprocesses rather than an in-process
// registry client, since pulling from an image registry is out of scope.
package imagestore

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"time"

	"github.com/kapsel-run/kapsel/pkg/kapselerr"
	"github.com/kapsel-run/kapsel/pkg/kapsellog"
	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/schollz/progressbar/v3"
)

// downloadURLs pins one known-good rootfs archive per supported distro.
var downloadURLs = map[types.Distro]string{
	types.Ubuntu: "http://cdimage.ubuntu.com/ubuntu-base/releases/20.04.2/release/ubuntu-base-20.04.1-base-amd64.tar.gz",
	types.Alpine: "https://dl-cdn.alpinelinux.org/alpine/v3.14/releases/x86_64/alpine-minirootfs-3.14.0-x86_64.tar.gz",
	types.CentOS: "https://github.com/Xiekers/rootfs/raw/master/centos-7-docker.tar.xz",
	types.Arch:   "https://github.com/Xiekers/rootfs/raw/master/archlinux.tar.xz",
}

// Ensure makes sure the distro's extracted lower-dir exists under
// <rootDir>/cache/<distro>/rootfs and returns its path. It is idempotent:
// re-running with the same distro reuses the cached archive and the
// extracted tree.
func Ensure(distro types.Distro, rootDir string) (string, error) {
	url, ok := downloadURLs[distro]
	if !ok {
		return "", kapselerr.New(kapselerr.SetupFailure, "imagestore.Ensure", fmt.Errorf("unknown distro %q", distro))
	}

	cacheDir := filepath.Join(rootDir, "cache", string(distro))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", kapselerr.New(kapselerr.SetupFailure, "mkdir cache dir", err)
	}

	archivePath := filepath.Join(cacheDir, path.Base(url))
	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		kapsellog.Printf("rootfs for %s not cached, downloading %s", distro, url)
		if err := downloadArchive(url, archivePath); err != nil {
			return "", kapselerr.New(kapselerr.SetupFailure, "download "+archivePath, err)
		}
	}

	lowerDir := filepath.Join(cacheDir, "rootfs")
	if _, err := os.Stat(lowerDir); os.IsNotExist(err) {
		if err := os.MkdirAll(lowerDir, 0o755); err != nil {
			return "", kapselerr.New(kapselerr.SetupFailure, "mkdir lower dir", err)
		}
		if err := extractArchive(archivePath, lowerDir); err != nil {
			return "", kapselerr.New(kapselerr.SetupFailure, "extract "+archivePath, err)
		}
	}

	return lowerDir, nil
}

// EnsureBuildExtract downloads the distro archive same as Ensure, but
// extracts directly into destDir (the container's own rootfs) instead of
// the shared cache lower-dir, for build-image mode.
func EnsureBuildExtract(distro types.Distro, rootDir, destDir string) error {
	url, ok := downloadURLs[distro]
	if !ok {
		return kapselerr.New(kapselerr.SetupFailure, "imagestore.EnsureBuildExtract", fmt.Errorf("unknown distro %q", distro))
	}

	cacheDir := filepath.Join(rootDir, "cache", string(distro))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "mkdir cache dir", err)
	}

	archivePath := filepath.Join(cacheDir, path.Base(url))
	if _, err := os.Stat(archivePath); os.IsNotExist(err) {
		kapsellog.Printf("rootfs for %s not cached, downloading %s", distro, url)
		if err := downloadArchive(url, archivePath); err != nil {
			return kapselerr.New(kapselerr.SetupFailure, "download "+archivePath, err)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return kapselerr.New(kapselerr.SetupFailure, "mkdir build dest", err)
	}
	return extractArchive(archivePath, destDir)
}

// downloadArchive shells out to wget, driving a progress bar from the
// destination file's growing size since wget runs quietly.
func downloadArchive(url, dest string) error {
	cmd := exec.Command("wget", "-O", dest, url, "-q")

	bar := progressbar.DefaultBytes(-1, "downloading "+path.Base(dest))
	defer bar.Close()

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if info, err := os.Stat(dest); err == nil {
					bar.Set64(info.Size())
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	return err
}

// extractArchive shells out to tar (gzip or xz auto-detected by tar).
func extractArchive(archivePath, destDir string) error {
	cmd := exec.Command("tar", "-xf", archivePath, "-C", destDir)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tar -xf %s -C %s: %w", archivePath, destDir, err)
	}
	return nil
}
