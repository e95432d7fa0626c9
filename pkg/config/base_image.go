package config

import (
	"github.com/maxdollinger/amethyst/pkg/codec"
	"github.com/maxdollinger/amethyst/pkg/imageref"

	"gopkg.in/yaml.v3"
)

// BaseImage is either the empty scratch base or a remote image with a tag.
// The zero value is scratch.
type BaseImage struct {
	name string
	tag  string
}

// Scratch is the implicit empty base.
var Scratch = BaseImage{}

// RemoteImage returns a base image pulled from a registry. An empty tag becomes latest;
// the reserved scratch name yields Scratch.
func RemoteImage(name, tag string) BaseImage {
	if imageref.IsScratch(name) || name == "" {
		return Scratch
	}
	return BaseImage{name: name, tag: imageref.TagOrLatest(tag)}
}

func (b BaseImage) IsScratch() bool {
	return b.name == ""
}

// Name returns the repository name, or "scratch".
func (b BaseImage) Name() string {
	if b.IsScratch() {
		return imageref.Scratch
	}
	return b.name
}

// Tag returns the tag of a remote image and "" for scratch.
func (b BaseImage) Tag() string {
	return b.tag
}

func (b BaseImage) String() string {
	if b.IsScratch() {
		return imageref.Scratch
	}
	return b.name + ":" + b.tag
}

// UnmarshalYAML keys on the name field: `name: scratch` is Scratch whatever the tag says,
// anything else is a remote image whose tag defaults to latest.
func (b *BaseImage) UnmarshalYAML(node *yaml.Node) error {
	record, err := codec.NewRecord("base_image", node, "name", "tag")
	if err != nil {
		return err
	}

	name, err := record.RequireString("name")
	if err != nil {
		return err
	}
	if name == "" {
		return codec.Errorf(node, "base_image: `name` must not be empty")
	}
	if imageref.IsScratch(name) {
		*b = Scratch
		return nil
	}

	tag, _, err := record.String("tag")
	if err != nil {
		return err
	}
	*b = BaseImage{name: name, tag: imageref.TagOrLatest(tag)}
	return nil
}

// MarshalYAML never writes a tag for scratch and always writes one for remote images.
func (b BaseImage) MarshalYAML() (any, error) {
	if b.IsScratch() {
		return struct {
			Name string `yaml:"name"`
		}{imageref.Scratch}, nil
	}
	return struct {
		Name string `yaml:"name"`
		Tag  string `yaml:"tag"`
	}{b.name, b.tag}, nil
}
