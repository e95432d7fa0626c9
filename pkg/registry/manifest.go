package registry

import (
	"encoding/json"
	"errors"

	"github.com/maxdollinger/amethyst/pkg/codec"

	"github.com/opencontainers/go-digest"
)

// Descriptor points at a blob. Blobs with equal digests are assumed identical.
type Descriptor struct {
	MediaType string        `json:"mediaType"`
	Size      int64         `json:"size"`
	Digest    digest.Digest `json:"digest"`
}

// Manifest is a v2 image manifest
type Manifest struct {
	SchemaVersion uint32       `json:"schemaVersion"`
	MediaType     string       `json:"mediaType"`
	Config        Descriptor   `json:"config"`
	Layers        []Descriptor `json:"layers"`
}

func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &codec.DecodeError{Err: err}
	}
	if m.Config.Digest == "" {
		return nil, &codec.DecodeError{Err: errors.New("manifest: missing config digest")}
	}
	for _, layer := range m.Layers {
		if layer.Digest == "" {
			return nil, &codec.DecodeError{Err: errors.New("manifest: layer without digest")}
		}
	}
	return &m, nil
}

// Blobs lists the config descriptor followed by the layers in manifest order.
func (m *Manifest) Blobs() []Descriptor {
	blobs := make([]Descriptor, 0, len(m.Layers)+1)
	blobs = append(blobs, m.Config)
	return append(blobs, m.Layers...)
}
