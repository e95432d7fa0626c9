package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type pair struct {
	Name string
	Tag  string
	Set  bool
}

func (p *pair) UnmarshalYAML(node *yaml.Node) error {
	record, err := NewRecord("pair", node, "name", "tag")
	if err != nil {
		return err
	}
	if p.Name, err = record.RequireString("name"); err != nil {
		return err
	}
	p.Tag, p.Set, err = record.String("tag")
	return err
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     pair
		wantKind *FieldErrorKind
		wantErr  bool
	}{
		{name: "name only", input: "name: foo", want: pair{Name: "foo"}},
		{name: "name and tag", input: "name: foo\ntag: bar", want: pair{Name: "foo", Tag: "bar", Set: true}},
		{name: "numeric scalar kept as text", input: "name: foo\ntag: 22.04", want: pair{Name: "foo", Tag: "22.04", Set: true}},
		{name: "null tag is absent", input: "name: foo\ntag: ~", want: pair{Name: "foo"}},
		{name: "missing name", input: "tag: bar", wantKind: kind(MissingField)},
		{name: "null name is missing", input: "name: ~", wantKind: kind(MissingField)},
		{name: "unknown field", input: "name: foo\nnmae: bar", wantKind: kind(UnknownField)},
		{name: "duplicate field", input: "name: foo\nname: bar", wantKind: kind(DuplicateField)},
		{name: "not a mapping", input: "- foo", wantErr: true},
		{name: "non scalar value", input: "name: [a, b]", wantErr: true},
		{name: "syntax error", input: "name: [", wantErr: true},
		{name: "empty document", input: "", wantErr: true},
		{name: "comment only", input: "# nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got pair
			err := Unmarshal([]byte(tt.input), &got)

			if tt.wantKind == nil && !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			require.Error(t, err)
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %T", err)

			if tt.wantKind != nil {
				var fieldErr *FieldError
				require.True(t, errors.As(err, &fieldErr), "expected FieldError, got %v", err)
				assert.Equal(t, *tt.wantKind, fieldErr.Kind)
				assert.Equal(t, "pair", fieldErr.Record)
			}
		})
	}
}

func TestFieldErrorMessage(t *testing.T) {
	err := &FieldError{Kind: UnknownField, Record: "base_image", Field: "tga", Line: 3}
	assert.Equal(t, "line 3: base_image: unknown field `tga`", err.Error())

	err = &FieldError{Kind: MissingField, Record: "image", Field: "name"}
	assert.Equal(t, "image: missing field `name`", err.Error())
}

func TestResolveAlias(t *testing.T) {
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("base: &b {name: foo}\nref: *b"), &doc))

	root := Resolve(&doc)
	require.Equal(t, yaml.MappingNode, root.Kind)

	record, err := NewRecord("root", root, "base", "ref")
	require.NoError(t, err)

	ref, ok := record.Field("ref")
	require.True(t, ok)
	assert.Equal(t, yaml.MappingNode, ref.Kind)
}

func kind(k FieldErrorKind) *FieldErrorKind {
	return &k
}
