// Package scriptlet defines the concrete build instructions an image is made of.
package scriptlet

import (
	"github.com/maxdollinger/amethyst/pkg/codec"

	"gopkg.in/yaml.v3"
)

// Type is the value of the `type` discriminator.
type Type string

const (
	TypeAdd Type = "add"
)

// Scriptlet is a single build instruction.
type Scriptlet interface {
	Type() Type
}

// Add copies Source from the build context to Destination inside the image.
type Add struct {
	Source      string
	Destination string
}

func (Add) Type() Type { return TypeAdd }

func (a Add) MarshalYAML() (any, error) {
	return struct {
		Type        Type   `yaml:"type"`
		Source      string `yaml:"source"`
		Destination string `yaml:"destination"`
	}{TypeAdd, a.Source, a.Destination}, nil
}

// Decode reads one scriptlet record, dispatching on its `type` field.
// Unknown types are rejected.
func Decode(node *yaml.Node) (Scriptlet, error) {
	node = codec.Resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, codec.Errorf(node, "scriptlet: expected a mapping")
	}

	typ, err := discriminator(node)
	if err != nil {
		return nil, err
	}

	switch Type(typ) {
	case TypeAdd:
		return decodeAdd(node)
	default:
		return nil, codec.Errorf(node, "scriptlet: unknown type %q", typ)
	}
}

func discriminator(node *yaml.Node) (string, error) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if key := codec.Resolve(node.Content[i]); key.Kind == yaml.ScalarNode && key.Value == "type" {
			value := codec.Resolve(node.Content[i+1])
			if value.Kind != yaml.ScalarNode || codec.IsNull(value) {
				return "", codec.Errorf(value, "scriptlet: `type` must be a string")
			}
			return value.Value, nil
		}
	}
	return "", &codec.FieldError{Kind: codec.MissingField, Record: "scriptlet", Field: "type", Line: node.Line}
}

func decodeAdd(node *yaml.Node) (Scriptlet, error) {
	record, err := codec.NewRecord("add scriptlet", node, "type", "source", "destination")
	if err != nil {
		return nil, err
	}

	var add Add
	if add.Source, err = record.RequireString("source"); err != nil {
		return nil, err
	}
	if add.Destination, err = record.RequireString("destination"); err != nil {
		return nil, err
	}
	return add, nil
}

// List is an ordered sequence of scriptlets, the content of a file-backed module.
type List []Scriptlet

func (l *List) UnmarshalYAML(node *yaml.Node) error {
	node = codec.Resolve(node)
	if node.Kind != yaml.SequenceNode {
		return codec.Errorf(node, "scriptlets: expected a sequence")
	}

	list := make(List, 0, len(node.Content))
	for _, item := range node.Content {
		s, err := Decode(item)
		if err != nil {
			return err
		}
		list = append(list, s)
	}
	*l = list
	return nil
}

// Load decodes raw module-file text as a flat list of scriptlets.
func Load(raw []byte) (List, error) {
	var list List
	if err := codec.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}
