// Package storage lays out the local content-addressable store:
//
//	<root>/<registry>/<repository>/<tag>/manifest.json
//	<root>/blob/<digest>
//
// The blob pool is flat and shared by every registry and repository.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
)

const (
	DefaultRoot      = "/var/lib/amethyst"
	BlobDirName      = "blob"
	ManifestFileName = "manifest.json"
)

// ErrPathEscape is returned for names that would resolve outside their subtree.
var ErrPathEscape = errors.New("path escapes the store")

type Layout struct {
	root string
}

// NewLayout roots a layout at root, or at DefaultRoot when root is empty.
func NewLayout(root string) Layout {
	if root == "" {
		root = DefaultRoot
	}
	return Layout{root: root}
}

func (l Layout) Root() string {
	if l.root == "" {
		return DefaultRoot
	}
	return l.root
}

func (l Layout) BlobDir() string {
	return filepath.Join(l.Root(), BlobDirName)
}

// BlobPath is the file a blob is stored under. The digest is used verbatim as the file name,
// so digests that would leave the blob directory are rejected.
func (l Layout) BlobPath(d digest.Digest) (string, error) {
	name := d.String()
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("digest %q cannot be used as a blob file name", name)
	}
	return filepath.Join(l.BlobDir(), name), nil
}

// ManifestDir is the per-tag directory of a repository pulled from registry.
// Every repository segment and the tag must be a plain name, and the result must stay
// below <root>/<registry>.
func (l Layout) ManifestDir(registry, repository, tag string) (string, error) {
	for _, segment := range append(strings.Split(repository, "/"), tag) {
		if segment == "" || segment == "." || segment == ".." || strings.ContainsAny(segment, `/\`) {
			return "", fmt.Errorf("%w: %q %q", ErrPathEscape, repository, tag)
		}
	}

	base := filepath.Join(l.Root(), registry)
	dir := filepath.Join(base, filepath.FromSlash(repository), tag)
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q %q", ErrPathEscape, repository, tag)
	}
	return dir, nil
}

func (l Layout) ManifestPath(registry, repository, tag string) (string, error) {
	dir, err := l.ManifestDir(registry, repository, tag)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ManifestFileName), nil
}
