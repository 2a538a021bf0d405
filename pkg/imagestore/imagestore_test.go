package imagestore

import (
	"testing"

	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEnsureRejectsUnknownDistro(t *testing.T) {
	_, err := Ensure(types.Distro("plan9"), t.TempDir())
	assert.Error(t, err)
}

func TestEnsureBuildExtractRejectsUnknownDistro(t *testing.T) {
	err := EnsureBuildExtract(types.Distro("plan9"), t.TempDir(), t.TempDir())
	assert.Error(t, err)
}

func TestDownloadURLsCoverAllDistros(t *testing.T) {
	for _, d := range []types.Distro{types.Ubuntu, types.Alpine, types.CentOS, types.Arch} {
		url, ok := downloadURLs[d]
		assert.True(t, ok, "missing url for %s", d)
		assert.NotEmpty(t, url)
	}
}
