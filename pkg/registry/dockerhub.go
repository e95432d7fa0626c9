package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/maxdollinger/amethyst/pkg/imageref"
	"github.com/maxdollinger/amethyst/pkg/lock"
	"github.com/maxdollinger/amethyst/pkg/storage"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/opencontainers/go-digest"
)

const (
	// DockerHubName names the Docker Hub subtree of the local store.
	DockerHubName = "docker"

	DefaultHubURL      = "https://hub.docker.com"
	DefaultAuthURL     = "https://auth.docker.io"
	DefaultRegistryURL = "https://registry-1.docker.io"
	DefaultAuthService = "registry.docker.io"
)

// DockerHubOptions configures a DockerHub client. Empty fields take Docker Hub defaults.
type DockerHubOptions struct {
	HubURL      string // repository existence probe
	AuthURL     string // token endpoint
	RegistryURL string // v2 manifests and blobs
	AuthService string

	HTTPClient *http.Client
	Logger     *slog.Logger
	Layout     storage.Layout

	// Tokens is asked for a token when FetchBaseImage gets none. nil = AuthService on AuthURL.
	Tokens TokenProvider

	// Locker serializes writes of one blob. nil = a lock per DockerHub.
	Locker lock.Locker

	// VerifyDigests hashes every blob against its digest while storing it.
	VerifyDigests bool
}

// DockerHub pulls images through the Docker Hub v2 API.
type DockerHub struct {
	hubURL      string
	registryURL string
	client      *Client
	tokens      TokenProvider
	layout      storage.Layout
	locker      lock.Locker
	verify      bool
}

func NewDockerHub(opts DockerHubOptions) *DockerHub {
	client := &Client{HTTP: opts.HTTPClient, Logger: opts.Logger}

	d := &DockerHub{
		hubURL:      orDefault(opts.HubURL, DefaultHubURL),
		registryURL: orDefault(opts.RegistryURL, DefaultRegistryURL),
		client:      client,
		tokens:      opts.Tokens,
		layout:      opts.Layout,
		locker:      opts.Locker,
		verify:      opts.VerifyDigests,
	}
	if d.locker == nil {
		d.locker = lock.NewKeyedLocker()
	}
	if d.tokens == nil {
		d.tokens = &AuthService{
			URL:     orDefault(opts.AuthURL, DefaultAuthURL),
			Service: orDefault(opts.AuthService, DefaultAuthService),
			Client:  client,
		}
	}
	return d
}

// FetchBaseImage stores the manifest of repository:tag under
// <root>/docker/<repository>/<tag>/manifest.json and every blob it references under
// <root>/blob/<digest>, overwriting existing files. It returns the manifest directory.
func (d *DockerHub) FetchBaseImage(ctx context.Context, repository, tag string, token *Token) (string, error) {
	if imageref.IsScratch(repository) {
		return "", &imageref.ReservedNameError{Event: "download image", ImageName: repository}
	}
	tag = imageref.TagOrLatest(tag)

	reference := repository + ":" + tag
	if _, err := name.NewTag(reference); err != nil {
		return "", &InvalidReferenceError{Reference: reference, Err: err}
	}
	if _, err := d.layout.ManifestDir(DockerHubName, repository, tag); err != nil {
		return "", &InvalidReferenceError{Reference: reference, Err: err}
	}

	repository, err := d.normalizeRepository(ctx, repository)
	if err != nil {
		return "", err
	}

	var auth Token
	if token != nil {
		auth = *token
	} else if auth, err = d.tokens.Token(ctx, repository); err != nil {
		return "", fmt.Errorf("token for %s: %w", repository, err)
	}

	manifestDir, err := d.layout.ManifestDir(DockerHubName, repository, tag)
	if err != nil {
		return "", &InvalidReferenceError{Reference: repository + ":" + tag, Err: err}
	}
	manifest, err := d.fetchManifest(ctx, repository, tag, auth, manifestDir)
	if err != nil {
		return "", fmt.Errorf("manifest %s:%s: %w", repository, tag, err)
	}

	if err := storage.EnsureDir(d.layout.BlobDir()); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	for _, blob := range manifest.Blobs() {
		if err := d.fetchBlob(ctx, repository, blob, auth); err != nil {
			return "", fmt.Errorf("blob %s of %s:%s: %w", blob.Digest, repository, tag, err)
		}
	}

	return manifestDir, nil
}

// normalizeRepository maps official single-word images to library/<name>.
func (d *DockerHub) normalizeRepository(ctx context.Context, repository string) (string, error) {
	url := fmt.Sprintf("%s/v2/repositories/library/%s", d.hubURL, repository)

	resp, err := d.client.get(ctx, "NormalizeRepository", url, nil)
	if err != nil {
		return "", err
	}
	defer d.client.closeBody(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return "library/" + repository, nil
	case http.StatusNotFound:
		return repository, nil
	default:
		return "", &UnknownImageNameError{ImageName: repository, StatusCode: resp.StatusCode}
	}
}

// fetchManifest persists the raw manifest before decoding it.
func (d *DockerHub) fetchManifest(ctx context.Context, repository, tag string, token Token, dir string) (*Manifest, error) {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", d.registryURL, repository, tag)
	header := http.Header{}
	header.Set("Accept", string(types.DockerManifestSchema2))
	header.Set("Authorization", token.String())

	resp, err := d.client.get(ctx, "GetManifest", url, header)
	if err != nil {
		return nil, err
	}
	defer d.client.closeBody(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Message: "cannot fetch manifest from docker hub registry"}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, URL: url, Err: err}
	}

	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	if err := storage.WriteFile(filepath.Join(dir, storage.ManifestFileName), raw); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return ParseManifest(raw)
}

func (d *DockerHub) fetchBlob(ctx context.Context, repository string, blob Descriptor, token Token) error {
	path, err := d.layout.BlobPath(blob.Digest)
	if err != nil {
		return err
	}

	var verifier digest.Verifier
	if d.verify {
		if err := blob.Digest.Validate(); err != nil {
			return err
		}
		verifier = blob.Digest.Verifier()
	}

	blobLock, err := d.locker.AcquireLock(ctx, blob.Digest)
	if err != nil {
		return err
	}
	defer blobLock.Release()

	url := fmt.Sprintf("%s/v2/%s/blobs/%s", d.registryURL, repository, blob.Digest)
	header := http.Header{}
	header.Set("Authorization", token.String())

	resp, err := d.client.get(ctx, "GetBlob", url, header)
	if err != nil {
		return err
	}
	defer d.client.closeBody(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return &HTTPStatusError{StatusCode: resp.StatusCode, Message: "cannot fetch blobs from docker hub registry"}
	}

	var body io.Reader = resp.Body
	if verifier != nil {
		body = io.TeeReader(resp.Body, verifier)
	}

	n, err := storage.WriteFrom(path, body)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}

	if verifier != nil && !verifier.Verified() {
		return errors.Join(&DigestMismatchError{Digest: blob.Digest}, os.Remove(path))
	}

	d.client.logger().DebugContext(ctx, "blob stored",
		"repository", repository,
		"digest", blob.Digest,
		"size_bytes", n,
	)
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
