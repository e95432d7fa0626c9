package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/maxdollinger/amethyst/pkg/codec"
	"github.com/maxdollinger/amethyst/pkg/scriptlet"

	"gopkg.in/yaml.v3"
)

// Module references scriptlets either inline or through a file holding a flat list of them.
// Exactly one of the two forms is set.
type Module struct {
	inline scriptlet.Scriptlet
	file   string
}

func InlineModule(s scriptlet.Scriptlet) Module {
	return Module{inline: s}
}

func FileModule(path string) Module {
	return Module{file: path}
}

func (m Module) IsFile() bool {
	return m.inline == nil
}

// Path is the referenced file of a file module.
func (m Module) Path() string {
	return m.file
}

// Inline is the scriptlet of an inline module.
func (m Module) Inline() scriptlet.Scriptlet {
	return m.inline
}

// UnmarshalYAML picks the form by shape: a string is a file, a mapping is an inline scriptlet.
func (m *Module) UnmarshalYAML(node *yaml.Node) error {
	node = codec.Resolve(node)
	switch {
	case node.Kind == yaml.ScalarNode && !codec.IsNull(node):
		*m = FileModule(node.Value)
		return nil
	case node.Kind == yaml.MappingNode:
		s, err := scriptlet.Decode(node)
		if err != nil {
			return err
		}
		*m = InlineModule(s)
		return nil
	default:
		return codec.Errorf(node, "module: expected a file path or a scriptlet")
	}
}

func (m Module) MarshalYAML() (any, error) {
	if m.IsFile() {
		return m.file, nil
	}
	return m.inline, nil
}

// Scriptlets expands the module. Relative file paths are resolved against dir.
// File modules are terminal: their content is a list of scriptlets, never of modules.
func (m Module) Scriptlets(dir string) ([]scriptlet.Scriptlet, error) {
	if !m.IsFile() {
		return []scriptlet.Scriptlet{m.inline}, nil
	}

	path := m.file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScriptletLoadError{Path: path, Err: err}
	}
	list, err := scriptlet.Load(raw)
	if err != nil {
		return nil, &ScriptletLoadError{Path: path, Err: err}
	}
	return list, nil
}

// Resolve concatenates the expansion of every module, in module order then file order.
func Resolve(dir string, modules []Module) ([]scriptlet.Scriptlet, error) {
	resolved := make([]scriptlet.Scriptlet, 0, len(modules))
	for i, module := range modules {
		scriptlets, err := module.Scriptlets(dir)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		resolved = append(resolved, scriptlets...)
	}
	return resolved, nil
}
