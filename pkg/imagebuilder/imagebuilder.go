// Package imagebuilder implements the single build-image finishing step:
// once a build-mode container's child has exited, its concrete rootfs
// tree is archived into <root>/images/<id>.tar.gz. There is no
// incremental or layered image format; every build produces one flat
// tarball.
package imagebuilder

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kapsel-run/kapsel/pkg/kapselerr"
)

// Build tars rootfsDir into <rootDir>/images/<id>.tar.gz.
func Build(rootDir, id, rootfsDir string) error {
	imagesDir := filepath.Join(rootDir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return kapselerr.New(kapselerr.CleanupFailure, "mkdir images dir", err)
	}

	archivePath := filepath.Join(imagesDir, id+".tar.gz")
	cmd := exec.Command("tar", "-czf", archivePath, "-C", rootfsDir, ".")
	if err := cmd.Run(); err != nil {
		return kapselerr.New(kapselerr.CleanupFailure, "tar -czf "+archivePath, err)
	}
	return nil
}
