package load

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigLoad(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{
		Paths:  []string{"testdata/schemas"},
		Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	schemas, err := cfg.Load()
	require.NoError(t, err)

	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"Customer", "Review", "Order", "Product"}, names)
	assert.Contains(t, buf.String(), "loaded schema file")

	review := schemas[1]
	assert.Equal(t, filepath.Join("testdata", "schemas", "multi.yml")+"#1", review.Pos)
	assert.Equal(t, KindStruct, review.Kind)
	require.Len(t, review.Fields, 2)
	assert.True(t, review.Fields[0].Attrs.Has("id"))
	assert.True(t, review.Fields[0].Attrs.Has("auto"))

	order := schemas[2]
	fk, ok := order.Fields[1].Attrs.Lookup("belongs_to")
	require.True(t, ok)
	assert.Equal(t, "Customer", fk.Value)
	exp, ok := order.Fields[1].Attrs.Lookup("field")
	require.True(t, ok)
	assert.Equal(t, []string{"create", "response"}, exp.Values())
}

func TestConfigLoadErrors(t *testing.T) {
	_, err := (&Config{}).Load()
	assert.Error(t, err)

	_, err = (&Config{Paths: []string{"testdata/missing"}}).Load()
	assert.Error(t, err)

	_, err = (&Config{Paths: []string{"testdata/schemas", "testdata/duplicate.yaml"}}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `entity "Customer" declared twice`)

	_, err = (&Config{Paths: []string{"testdata/bad.yaml"}}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected_key")
}

func TestAttrTree(t *testing.T) {
	schemas, err := LoadFile("testdata/schemas/product.yaml")
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	p := schemas[0]
	assert.Equal(t, "A stocked product.", p.Doc)

	var keys []string
	for _, a := range p.Attrs {
		keys = append(keys, a.Name)
	}
	assert.Equal(t, []string{
		"table", "schema", "soft_delete", "returning", "events", "commands",
		"command", "projection", "has_many", "index",
	}, keys, "mapping order is preserved")

	cmd, ok := p.Attrs.Lookup("command")
	require.True(t, ok)
	require.Len(t, cmd.Args, 3)
	assert.Equal(t, "Register", cmd.Args[0].Value)
	assert.Equal(t, "Restock: quantity", cmd.Args[1].Value)
	name, ok := cmd.Args[2].Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "Archive", name.Value)

	idx, _ := p.Attrs.Lookup("index")
	cols, ok := idx.Args[0].Lookup("columns")
	require.True(t, ok)
	assert.Equal(t, []string{"sku", "quantity"}, cols.Values())

	hm, _ := p.Attrs.Lookup("has_many")
	assert.Equal(t, []string{"Review"}, hm.Values())

	col, _ := p.Fields[1].Attrs.Lookup("column")
	u, ok := col.Lookup("unique")
	require.True(t, ok)
	assert.Equal(t, "true", u.Value)
}

func TestAttrValues(t *testing.T) {
	a := &Attr{Value: "a, b,,c"}
	assert.Equal(t, []string{"a", "b", "c"}, a.Values())

	flags := &Attr{Name: "field", Args: []*Attr{{Name: "create"}, {Name: "update", Value: "x"}, {Value: "response"}}}
	assert.Equal(t, []string{"create", "response"}, flags.Values())

	assert.True(t, (&Attr{Name: "id"}).IsFlag())
	assert.False(t, (&Attr{Name: "id", Value: "true"}).IsFlag())
	assert.Equal(t, `column(unique="true", index="gin")`,
		(&Attr{Name: "column", Args: []*Attr{{Name: "unique", Value: "true"}, {Name: "index", Value: "gin"}}}).String())
}

func TestParse(t *testing.T) {
	t.Run("MultiDoc", func(t *testing.T) {
		doc := "name: A\nattrs: {table: a}\n---\nname: B\nkind: enum\n"
		schemas, err := ParseBytes([]byte(doc), "inline")
		require.NoError(t, err)
		require.Len(t, schemas, 2)
		assert.Equal(t, "inline#0", schemas[0].Pos)
		assert.Equal(t, KindEnum, schemas[1].Kind)
	})

	t.Run("MissingName", func(t *testing.T) {
		_, err := ParseBytes([]byte("attrs: {table: a}\n"), "inline")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema has no name")
	})

	t.Run("BadAttrs", func(t *testing.T) {
		_, err := ParseBytes([]byte("name: A\nattrs: 5\n"), "inline")
		require.Error(t, err)
	})

	t.Run("NullFlag", func(t *testing.T) {
		schemas, err := ParseBytes([]byte("name: A\nfields:\n  - name: id\n    type: uuid\n    attrs:\n      id:\n"), "inline")
		require.NoError(t, err)
		a, ok := schemas[0].Fields[0].Attrs.Lookup("id")
		require.True(t, ok)
		assert.True(t, a.IsFlag())
	})
}

func TestAttrsRoundTrip(t *testing.T) {
	schemas, err := LoadFile("testdata/schemas/product.yaml")
	require.NoError(t, err)
	out, err := yaml.Marshal(schemas[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "soft_delete: \"true\"") || strings.Contains(string(out), "soft_delete: true"))

	again, err := ParseBytes(out, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, schemas[0].Attrs.All("table")[0].Value, again[0].Attrs.All("table")[0].Value)
	cmd, _ := again[0].Attrs.Lookup("command")
	assert.Len(t, cmd.Args, 3)
}

func TestSchemaFiles(t *testing.T) {
	files, err := SchemaFiles("testdata/schemas")
	require.NoError(t, err)
	for _, f := range files {
		assert.NotContains(t, f, ".hidden")
		assert.NotContains(t, f, "README")
	}
	assert.Len(t, files, 3)

	files, err = SchemaFiles("testdata/bad.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/bad.yaml"}, files)
}
