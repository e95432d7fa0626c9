package builder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxdollinger/amethyst/pkg/config"
	"github.com/maxdollinger/amethyst/pkg/imageref"
	"github.com/maxdollinger/amethyst/pkg/registry"
	"github.com/maxdollinger/amethyst/pkg/scriptlet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `image:
  - scripts:
      - type: add
        source: ./a
        destination: /a
    name: image1
  - scripts:
      - modules/copy.yaml
      - type: add
        source: ./b
        destination: /b
    base_image:
      name: ubuntu
      tag: "22.04"
    name: image2
    tag: "1.0"
`

const testModule = `- type: add
  source: ./etc/hosts
  destination: /etc/hosts
`

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

type fetchCall struct {
	repository string
	tag        string
	token      *registry.Token
}

type fakeRegistry struct {
	calls []fetchCall
	err   error
}

func (f *fakeRegistry) FetchBaseImage(_ context.Context, repository, tag string, token *registry.Token) (string, error) {
	f.calls = append(f.calls, fetchCall{repository: repository, tag: tag, token: token})
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join("/store/docker", repository, tag), nil
}

type journalEntry struct {
	buildID, image, tag, base string
	manifestDir               string
	err                       error
	ended                     bool
}

type fakeJournal struct {
	entries  []*journalEntry
	beginErr error
	endErr   error
}

func (f *fakeJournal) Begin(_ context.Context, buildID, imageName, imageTag, baseImage string) (string, error) {
	if f.beginErr != nil {
		return "", f.beginErr
	}
	f.entries = append(f.entries, &journalEntry{buildID: buildID, image: imageName, tag: imageTag, base: baseImage})
	return imageName, nil
}

func (f *fakeJournal) End(_ context.Context, jobID, manifestDir string, buildErr error) error {
	for _, e := range f.entries {
		if e.image == jobID {
			e.manifestDir, e.err, e.ended = manifestDir, buildErr, true
		}
	}
	return f.endErr
}

func TestBuild(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: testConfig,
		"modules/copy.yaml":       testModule,
	})
	reg := &fakeRegistry{}
	journal := &fakeJournal{}

	result, err := NewBuilder(reg, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: dir})
	require.NoError(t, err)

	assert.NotEmpty(t, result.BuildID)
	require.Len(t, result.Images, 2)
	assert.Empty(t, reg.calls, "nothing is pulled without Pull")

	assert.Equal(t, []scriptlet.Scriptlet{
		scriptlet.Add{Source: "./a", Destination: "/a"},
	}, result.Images[0].Scriptlets)
	assert.Equal(t, []scriptlet.Scriptlet{
		scriptlet.Add{Source: "./etc/hosts", Destination: "/etc/hosts"},
		scriptlet.Add{Source: "./b", Destination: "/b"},
	}, result.Images[1].Scriptlets)
	assert.Empty(t, result.Images[1].ManifestDir)

	require.Len(t, journal.entries, 2)
	assert.Equal(t, "image1", journal.entries[0].image)
	assert.Equal(t, "latest", journal.entries[0].tag)
	assert.Equal(t, "scratch", journal.entries[0].base)
	assert.Equal(t, "ubuntu:22.04", journal.entries[1].base)
	for _, e := range journal.entries {
		assert.Equal(t, result.BuildID, e.buildID)
		assert.True(t, e.ended)
		assert.NoError(t, e.err)
	}
}

func TestBuildPull(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: testConfig,
		"modules/copy.yaml":       testModule,
	})
	reg := &fakeRegistry{}
	journal := &fakeJournal{}
	token := registry.JWTToken("abc")

	result, err := NewBuilder(reg, journal, nil).Build(context.Background(), BuildOptions{
		ConfigDir: dir,
		Pull:      true,
		Token:     &token,
	})
	require.NoError(t, err)

	// scratch bases are never fetched
	require.Len(t, reg.calls, 1)
	assert.Equal(t, "ubuntu", reg.calls[0].repository)
	assert.Equal(t, "22.04", reg.calls[0].tag)
	assert.Equal(t, &token, reg.calls[0].token)

	assert.Empty(t, result.Images[0].ManifestDir)
	assert.Equal(t, "/store/docker/ubuntu/22.04", result.Images[1].ManifestDir)
	assert.Equal(t, "/store/docker/ubuntu/22.04", journal.entries[1].manifestDir)
}

func TestBuildPullFailure(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: testConfig,
		"modules/copy.yaml":       testModule,
	})
	reg := &fakeRegistry{err: &registry.HTTPStatusError{StatusCode: 404, Message: "cannot fetch manifest from docker hub registry"}}
	journal := &fakeJournal{}

	_, err := NewBuilder(reg, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: dir, Pull: true})

	var statusErr *registry.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Contains(t, err.Error(), "image2:1.0")

	require.Len(t, journal.entries, 2)
	assert.NoError(t, journal.entries[0].err)
	assert.True(t, journal.entries[1].ended)
	assert.Error(t, journal.entries[1].err)
}

func TestBuildMissingModuleFile(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: testConfig,
	})
	journal := &fakeJournal{}

	_, err := NewBuilder(nil, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: dir})

	var loadErr *config.ScriptletLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, filepath.Join(dir, "modules/copy.yaml"), loadErr.Path)
	assert.Error(t, journal.entries[1].err)
}

func TestBuildInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "missing entrypoint",
			files: map[string]string{},
			check: func(t *testing.T, err error) {
				var loadErr *config.LoadError
				assert.True(t, errors.As(err, &loadErr))
			},
		},
		{
			name:  "reserved image name",
			files: map[string]string{config.EntrypointFileName: "image:\n  - scripts: []\n    name: scratch\n"},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, imageref.ErrReservedName))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := &fakeJournal{}
			_, err := NewBuilder(nil, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: writeConfigDir(t, tt.files)})
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, journal.entries)
		})
	}
}

func TestBuildJournalFailure(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: "image:\n  - scripts: []\n    name: app\n",
	})

	t.Run("begin", func(t *testing.T) {
		journal := &fakeJournal{beginErr: errors.New("disk full")}
		_, err := NewBuilder(nil, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: dir})
		assert.ErrorContains(t, err, "journal: disk full")
	})

	t.Run("end", func(t *testing.T) {
		journal := &fakeJournal{endErr: errors.New("disk full")}
		_, err := NewBuilder(nil, journal, nil).Build(context.Background(), BuildOptions{ConfigDir: dir})
		assert.ErrorContains(t, err, "journal: disk full")
	})
}

func TestBuildPullWithoutRegistry(t *testing.T) {
	_, err := NewBuilder(nil, nil, nil).Build(context.Background(), BuildOptions{ConfigDir: t.TempDir(), Pull: true})

	assert.Error(t, err)
}

func TestBuildResultConfig(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		config.EntrypointFileName: testConfig,
		"modules/copy.yaml":       testModule,
	})

	result, err := NewBuilder(nil, nil, nil).Build(context.Background(), BuildOptions{ConfigDir: dir})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, result.Config().Encode(&out))

	// the encoded result is itself a valid configuration without file modules
	resolved, err := config.Parse(out.Bytes())
	require.NoError(t, err)
	require.Len(t, resolved.Images, 2)
	for i, image := range resolved.Images {
		for _, module := range image.Modules {
			assert.False(t, module.IsFile())
		}
		scriptlets, err := image.Scriptlets(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, result.Images[i].Scriptlets, scriptlets)
	}
	assert.Equal(t, config.RemoteImage("ubuntu", "22.04"), resolved.Images[1].BaseImage)
	assert.Equal(t, "1.0", resolved.Images[1].Tag)
}
