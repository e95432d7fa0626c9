// Package codec decodes the structural records of amethyst's YAML files.
//
// Records are walked field by field over yaml.Node so that every record can reject
// unknown and duplicate keys and report missing ones with a typed FieldError.
package codec

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errEmptyDocument = errors.New("empty document")

// DecodeError wraps any failure to turn text into typed records.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Errorf builds a DecodeError positioned at node.
func Errorf(node *yaml.Node, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if node != nil && node.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", node.Line, msg)
	}
	return &DecodeError{Err: errors.New(msg)}
}

type FieldErrorKind int

const (
	MissingField FieldErrorKind = iota
	UnknownField
	DuplicateField
)

func (k FieldErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case UnknownField:
		return "unknown field"
	case DuplicateField:
		return "duplicate field"
	default:
		return "invalid field"
	}
}

// FieldError reports a structural problem with one field of a record.
type FieldError struct {
	Kind   FieldErrorKind
	Record string
	Field  string
	Line   int
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s `%s`", e.Line, e.Record, e.Kind, e.Field)
	}
	return fmt.Sprintf("%s: %s `%s`", e.Record, e.Kind, e.Field)
}

// Unmarshal decodes a single YAML document into v. Syntax errors, empty input and
// errors raised by custom unmarshalers all surface as *DecodeError.
func Unmarshal(raw []byte, v any) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &DecodeError{Err: err}
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return &DecodeError{Err: errEmptyDocument}
	}

	if err := doc.Decode(v); err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return err
		}
		return &DecodeError{Err: err}
	}
	return nil
}

// Resolve follows document and alias indirections down to the value node.
func Resolve(node *yaml.Node) *yaml.Node {
	for node != nil {
		switch node.Kind {
		case yaml.DocumentNode:
			if len(node.Content) == 0 {
				return node
			}
			node = node.Content[0]
		case yaml.AliasNode:
			node = node.Alias
		default:
			return node
		}
	}
	return node
}

// IsNull reports whether node is absent or an explicit YAML null.
func IsNull(node *yaml.Node) bool {
	node = Resolve(node)
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

// Record is a YAML mapping whose keys were checked against an allow list.
type Record struct {
	Name   string
	node   *yaml.Node
	fields map[string]*yaml.Node
}

// NewRecord validates that node is a mapping that uses only the allowed keys, each at most once.
func NewRecord(name string, node *yaml.Node, allowed ...string) (*Record, error) {
	node = Resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, Errorf(node, "%s: expected a mapping", name)
	}

	known := make(map[string]bool, len(allowed))
	for _, field := range allowed {
		known[field] = true
	}

	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := Resolve(node.Content[i])
		if key.Kind != yaml.ScalarNode {
			return nil, Errorf(key, "%s: field names must be scalars", name)
		}
		if !known[key.Value] {
			return nil, &FieldError{Kind: UnknownField, Record: name, Field: key.Value, Line: key.Line}
		}
		if _, dup := fields[key.Value]; dup {
			return nil, &FieldError{Kind: DuplicateField, Record: name, Field: key.Value, Line: key.Line}
		}
		fields[key.Value] = node.Content[i+1]
	}

	return &Record{Name: name, node: node, fields: fields}, nil
}

// Field returns the value of a field. Explicit nulls count as absent.
func (r *Record) Field(field string) (*yaml.Node, bool) {
	value, ok := r.fields[field]
	if !ok || IsNull(value) {
		return nil, false
	}
	return Resolve(value), true
}

// Require returns the value of a field or a MissingField error.
func (r *Record) Require(field string) (*yaml.Node, error) {
	value, ok := r.Field(field)
	if !ok {
		return nil, &FieldError{Kind: MissingField, Record: r.Name, Field: field, Line: r.node.Line}
	}
	return value, nil
}

// String returns a scalar field as text. ok is false when the field is absent.
func (r *Record) String(field string) (value string, ok bool, err error) {
	node, ok := r.Field(field)
	if !ok {
		return "", false, nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", false, Errorf(node, "%s: field `%s` must be a string", r.Name, field)
	}
	return node.Value, true, nil
}

// RequireString is String with a MissingField error for absent fields.
func (r *Record) RequireString(field string) (string, error) {
	value, ok, err := r.String(field)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &FieldError{Kind: MissingField, Record: r.Name, Field: field, Line: r.node.Line}
	}
	return value, nil
}
