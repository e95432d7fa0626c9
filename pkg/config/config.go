// Package config decodes amethyst.yaml build configurations and resolves their modules
// into flat scriptlet lists.
package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/maxdollinger/amethyst/pkg/codec"

	"gopkg.in/yaml.v3"
)

// EntrypointFileName is read from the configuration directory.
const EntrypointFileName = "amethyst.yaml"

// Config is the top-level document: an ordered list of images under `image`.
type Config struct {
	Images []ImageSpec `yaml:"image"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	record, err := codec.NewRecord("config", node, "image")
	if err != nil {
		return err
	}

	images, err := record.Require("image")
	if err != nil {
		return err
	}
	if images.Kind != yaml.SequenceNode {
		return codec.Errorf(images, "config: `image` must be a sequence")
	}

	var cfg Config
	if err := images.Decode(&cfg.Images); err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Parse decodes a configuration document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := codec.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads EntrypointFileName from configDir.
func Load(configDir string) (*Config, error) {
	entrypoint := filepath.Join(configDir, EntrypointFileName)

	raw, err := os.ReadFile(entrypoint)
	if err != nil {
		return nil, &LoadError{Path: entrypoint, Err: err}
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, &LoadError{Path: entrypoint, Err: err}
	}
	return cfg, nil
}

// Encode writes cfg as YAML using two-space indentation.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
