package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	layout := NewLayout("/srv/amethyst")

	assert.Equal(t, "/srv/amethyst", layout.Root())
	assert.Equal(t, "/srv/amethyst/blob", layout.BlobDir())

	dir, err := layout.ManifestDir("docker", "library/ubuntu", "latest")
	require.NoError(t, err)
	assert.Equal(t, "/srv/amethyst/docker/library/ubuntu/latest", dir)

	manifest, err := layout.ManifestPath("docker", "ubuntu", "22.04")
	require.NoError(t, err)
	assert.Equal(t, "/srv/amethyst/docker/ubuntu/22.04/manifest.json", manifest)

	blob, err := layout.BlobPath(digest.Digest("sha256:aaa"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/amethyst/blob/sha256:aaa", blob)
}

func TestDefaultRoot(t *testing.T) {
	assert.Equal(t, DefaultRoot, NewLayout("").Root())
	assert.Equal(t, DefaultRoot, Layout{}.Root())
}

func TestBlobPathRejectsEscapes(t *testing.T) {
	layout := NewLayout(t.TempDir())

	for _, d := range []string{"", ".", "..", "../etc/passwd", "sha256/aaa"} {
		_, err := layout.BlobPath(digest.Digest(d))
		assert.Error(t, err, "digest %q", d)
	}
}

func TestManifestDirRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root)

	tests := []struct {
		repository string
		tag        string
	}{
		{repository: "a/../../../escaped", tag: "latest"},
		{repository: "../escaped", tag: "latest"},
		{repository: "ubuntu/..", tag: "latest"},
		{repository: "./ubuntu", tag: "latest"},
		{repository: "library//ubuntu", tag: "latest"},
		{repository: "/etc", tag: "latest"},
		{repository: "", tag: "latest"},
		{repository: "ubuntu", tag: ".."},
		{repository: "ubuntu", tag: ""},
		{repository: "ubuntu", tag: "a/b"},
		{repository: `ubuntu\..`, tag: "latest"},
	}

	for _, tt := range tests {
		t.Run(tt.repository+":"+tt.tag, func(t *testing.T) {
			_, err := layout.ManifestDir("docker", tt.repository, tt.tag)
			assert.ErrorIs(t, err, ErrPathEscape)

			_, err = layout.ManifestPath("docker", tt.repository, tt.tag)
			assert.ErrorIs(t, err, ErrPathEscape)
		})
	}

	dir, err := layout.ManifestDir("docker", "library/ubuntu", "22.04")
	require.NoError(t, err)
	rel, err := filepath.Rel(root, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("docker", "library", "ubuntu", "22.04"), rel)
}

func TestWriteOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	path := filepath.Join(dir, "sha256:aaa")
	require.NoError(t, WriteFile(path, []byte("first version")))

	n, err := WriteFrom(path, strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("second")), n)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}
