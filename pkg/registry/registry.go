// Package registry pulls base images from a remote registry into the local store.
//
// A pull is a fixed pipeline: reject the reserved scratch name, normalize the repository,
// obtain a pull token, fetch and persist the manifest, then fetch and persist every blob
// it references. Each stage fails fast and nothing is retried or rolled back.
package registry

import "context"

// Registry abstracts where base images are pulled from.
type Registry interface {
	// FetchBaseImage downloads the manifest and blobs of repository:tag and returns the
	// directory holding the manifest. A nil token makes the registry obtain its own.
	FetchBaseImage(ctx context.Context, repository, tag string, token *Token) (string, error)
}

// Compile-time interface compliance checks
var _ Registry = (*DockerHub)(nil)
