package config

import (
	"github.com/maxdollinger/amethyst/pkg/codec"
	"github.com/maxdollinger/amethyst/pkg/imageref"
	"github.com/maxdollinger/amethyst/pkg/scriptlet"

	"gopkg.in/yaml.v3"
)

const (
	scriptsField = "scripts"
	// modulesField is accepted as an alias of scriptsField.
	modulesField = "modules"
)

// ImageSpec describes one image to build.
type ImageSpec struct {
	Modules   []Module  `yaml:"scripts"`
	BaseImage BaseImage `yaml:"base_image"`
	Name      string    `yaml:"name"`
	Tag       string    `yaml:"tag"`
}

func (s *ImageSpec) UnmarshalYAML(node *yaml.Node) error {
	record, err := codec.NewRecord("image", node, scriptsField, modulesField, "base_image", "name", "tag")
	if err != nil {
		return err
	}

	scripts, hasScripts := record.Field(scriptsField)
	modules, hasModules := record.Field(modulesField)
	switch {
	case hasScripts && hasModules:
		return &codec.FieldError{Kind: codec.DuplicateField, Record: "image", Field: modulesField, Line: modules.Line}
	case hasModules:
		scripts = modules
	case !hasScripts:
		if scripts, err = record.Require(scriptsField); err != nil {
			return err
		}
	}
	if scripts.Kind != yaml.SequenceNode {
		return codec.Errorf(scripts, "image: `%s` must be a sequence", scriptsField)
	}

	var spec ImageSpec
	spec.Modules = make([]Module, 0, len(scripts.Content))
	if err := scripts.Decode(&spec.Modules); err != nil {
		return err
	}

	if spec.Name, err = record.RequireString("name"); err != nil {
		return err
	}
	if imageref.IsScratch(spec.Name) {
		return &imageref.ReservedNameError{Event: "name an image", ImageName: spec.Name}
	}

	tag, _, err := record.String("tag")
	if err != nil {
		return err
	}
	spec.Tag = imageref.TagOrLatest(tag)

	if base, ok := record.Field("base_image"); ok {
		if err := base.Decode(&spec.BaseImage); err != nil {
			return err
		}
	}

	*s = spec
	return nil
}

// Scriptlets resolves all modules of the image into one flat instruction list.
func (s ImageSpec) Scriptlets(dir string) ([]scriptlet.Scriptlet, error) {
	return Resolve(dir, s.Modules)
}

// Reference is the name:tag the image is built as.
func (s ImageSpec) Reference() string {
	return s.Name + ":" + s.Tag
}
