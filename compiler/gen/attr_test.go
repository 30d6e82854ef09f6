package gen

import (
	"bytes"
	"log/slog"
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/load"
	"github.com/syssam/entgen/dialect/sql/schema"
)

func entityAttrs(t *testing.T, attrs string) (*EntityAttrs, error) {
	t.Helper()
	s := parseSchemas(t, "name: Tag\nattrs:\n"+attrs+"\nfields:\n  - {name: id, type: uuid}\n")[0]
	return ExtractEntityAttrs(s, quietLogger())
}

func fieldAttrs(t *testing.T, attrs string) (*FieldAttrs, error) {
	t.Helper()
	s := parseSchemas(t, "name: Tag\nfields:\n  - name: f\n    type: string\n    attrs:\n"+attrs+"\n")[0]
	return ExtractFieldAttrs("Tag", s.Fields[0], quietLogger())
}

func TestExtractEntityAttrs(t *testing.T) {
	ea, err := entityAttrs(t, `
  table: orders
  schema: sales
  sql: trait
  dialect: PostgreSQL
  uuid: ulid
  error: mapOrderError
  soft_delete: "yes"
  returning: id
  has_many: [Line, Payment]
  hooks: on
  api: {path: /orders, methods: [get, post]}`)
	require.NoError(t, err)

	assert.Equal(t, "orders", ea.Table)
	assert.Equal(t, "sales", ea.Schema)
	assert.Equal(t, SQLTrait, ea.SQLLevel)
	assert.Equal(t, PrimaryRelational{}, ea.Dialect)
	assert.Equal(t, IDULID, ea.IDStrategy)
	assert.Equal(t, "mapOrderError", ea.Error)
	assert.True(t, ea.SoftDelete)
	assert.Equal(t, ReturningIDOnly, ea.Returning.Mode)
	assert.Equal(t, []string{"Line", "Payment"}, ea.HasMany)
	assert.Equal(t, map[string]bool{"hooks": true}, ea.Features)
	require.NotNil(t, ea.API)
	v, ok := ea.API.Lookup("path")
	require.True(t, ok)
	assert.Equal(t, "/orders", v.Value)
}

func TestExtractEntityAttrs_Defaults(t *testing.T) {
	ea, err := entityAttrs(t, "  table: tags")
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultSchema, ea.Schema)
	assert.Equal(t, PrimaryRelational{}, ea.Dialect)
	assert.Equal(t, IDv7, ea.IDStrategy)
	assert.Equal(t, SQLFull, ea.SQLLevel)
	assert.Equal(t, ReturningFull, ea.Returning.Mode)
	assert.False(t, ea.SoftDelete)
	assert.Empty(t, ea.Features)
}

func TestExtractEntityAttrs_Unimplemented(t *testing.T) {
	for _, name := range []string{"clickhouse", "mongodb", "Mongo"} {
		ea, err := entityAttrs(t, "  dialect: "+name)
		require.NoError(t, err)
		_, ok := ea.Dialect.(Unimplemented)
		assert.True(t, ok, name)
	}
}

func TestExtractEntityAttrs_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
		want  string
	}{
		{"dialect", "  dialect: oracle", "attribute dialect"},
		{"uuid", "  uuid: v1", "attribute uuid"},
		{"sql", "  sql: partial", "attribute sql"},
		{"returning", "  returning: everything please", "attribute returning"},
		{"soft_delete", "  soft_delete: maybe", "attribute soft_delete: expected a boolean"},
		{"index kind", "  index: {columns: [a], using: rtree}", "attribute index"},
		{"index without columns", "  index: {name: idx_x}", "attribute index: no columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entityAttrs(t, tt.attrs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExtractEntityAttrs_UnknownKeysLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := parseSchemas(t, "name: Tag\nattrs: {table: tags, colour: blue}\nfields: [{name: id, type: uuid}]\n")[0]

	_, err := ExtractEntityAttrs(s, logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ignoring unknown attribute")
	assert.Contains(t, buf.String(), "attr=colour")
}

func TestExtractEntityAttrs_ReturningColumns(t *testing.T) {
	ea, err := entityAttrs(t, "  returning: [id, updated_at]")
	require.NoError(t, err)
	assert.Equal(t, Returning{Mode: ReturningColumns, Columns: []string{"id", "updated_at"}}, ea.Returning)
}

func TestExtractEntityAttrs_Indexes(t *testing.T) {
	ea, err := entityAttrs(t, `
  index:
    - {name: idx_a, columns: [a, b], unique: true, where: "a > 0"}
    - {fields: [c], type: gin}
    - "d, e"`)
	require.NoError(t, err)
	require.Len(t, ea.Indexes, 3)

	assert.Equal(t, "idx_a", ea.Indexes[0].Name)
	assert.Equal(t, []string{"a", "b"}, ea.Indexes[0].Columns)
	assert.True(t, ea.Indexes[0].Unique)
	assert.Equal(t, "a > 0", ea.Indexes[0].Where)

	assert.Equal(t, []string{"c"}, ea.Indexes[1].Columns)
	assert.Equal(t, schema.Gin, ea.Indexes[1].Kind)

	assert.Equal(t, []string{"d", "e"}, ea.Indexes[2].Columns)
}

func TestExtractFieldAttrs(t *testing.T) {
	fa, err := fieldAttrs(t, `
      field: [create, update, response]
      filter: like
      column: {unique: true, index: hash, default: "''", check: "length(f) > 0", varchar: 64, name: f_col, nullable: false}`)
	require.NoError(t, err)

	assert.True(t, fa.InCreate)
	assert.True(t, fa.InUpdate)
	assert.True(t, fa.InResponse)
	assert.Equal(t, FilterLike, fa.Filter)
	assert.True(t, fa.Column.Unique)
	assert.Equal(t, schema.Hash, fa.Column.Index)
	assert.Equal(t, "''", fa.Column.Default)
	assert.Equal(t, "length(f) > 0", fa.Column.Check)
	assert.Equal(t, 64, fa.Column.Varchar)
	assert.Equal(t, "f_col", fa.Column.Name)
	require.NotNil(t, fa.Column.Nullable)
	assert.False(t, *fa.Column.Nullable)
}

func TestExtractFieldAttrs_Exposure(t *testing.T) {
	tests := []struct {
		name                     string
		attrs                    string
		create, update, response bool
	}{
		{"list", "      field: [create, response]", true, false, true},
		{"comma list", `      field: "update, response"`, false, true, true},
		{"mapping", "      field: {create: true, update: no, response: 1}", true, false, true},
		{"skip clears all", "      field: [create, update, response]\n      skip: true", false, false, false},
		{"skip in list", "      field: [create, skip]", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, err := fieldAttrs(t, tt.attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.create, fa.InCreate, "create")
			assert.Equal(t, tt.update, fa.InUpdate, "update")
			assert.Equal(t, tt.response, fa.InResponse, "response")
		})
	}
}

func TestExtractFieldAttrs_BelongsTo(t *testing.T) {
	tests := []struct {
		name     string
		attrs    string
		target   string
		onDelete atlas.ReferenceOption
	}{
		{"scalar", "      belongs_to: Customer", "Customer", ""},
		{"list", "      belongs_to: [Customer, {on_delete: set_null}]", "Customer", atlas.SetNull},
		{"mapping", "      belongs_to: {target: Customer, on_delete: CASCADE}", "Customer", atlas.Cascade},
		{"parent key", "      belongs_to: {parent: Customer, on_delete: Set Default}", "Customer", atlas.SetDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, err := fieldAttrs(t, tt.attrs)
			require.NoError(t, err)
			require.NotNil(t, fa.BelongsTo)
			assert.Equal(t, tt.target, fa.BelongsTo.Target)
			assert.Equal(t, tt.onDelete, fa.BelongsTo.OnDelete)
		})
	}

	t.Run("missing target", func(t *testing.T) {
		_, err := fieldAttrs(t, "      belongs_to: {on_delete: cascade}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing target type")
	})
	t.Run("bad action", func(t *testing.T) {
		_, err := fieldAttrs(t, "      belongs_to: {target: Customer, on_delete: explode}")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestExtractFieldAttrs_Coercion(t *testing.T) {
	fa, err := fieldAttrs(t, "      id: 1\n      auto: \"true\"")
	require.NoError(t, err)
	assert.True(t, fa.ID)
	assert.True(t, fa.Auto)

	fa, err = fieldAttrs(t, "      id:")
	require.NoError(t, err)
	assert.True(t, fa.ID, "a bare key is a flag")

	_, err = fieldAttrs(t, "      column: {varchar: -3}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a non-negative integer")
}

func TestExtractFieldAttrs_IndexFlag(t *testing.T) {
	for in, want := range map[string]schema.IndexKind{
		"{index: true}":   schema.BTree,
		"{index: \"on\"}": schema.BTree,
		"{index: false}":  "",
		"{index: gin}":    schema.Gin,
		"[index]":         schema.BTree,
	} {
		fa, err := fieldAttrs(t, "      column: "+in)
		require.NoError(t, err, in)
		assert.Equal(t, want, fa.Column.Index, in)
	}
	_, err := fieldAttrs(t, "      column: {index: rtree}")
	assert.ErrorContains(t, err, "attribute column.index")
}

func TestListItems(t *testing.T) {
	scalar := &load.Attr{Name: "command", Value: "Register"}
	assert.Len(t, listItems(scalar), 1)

	mapping := &load.Attr{Name: "command", Args: []*load.Attr{{Name: "name", Value: "Archive"}}}
	items := listItems(mapping)
	require.Len(t, items, 1)
	assert.Equal(t, mapping.Args, items[0].Args)

	list := &load.Attr{Name: "command", Args: []*load.Attr{{Value: "A"}, {Value: "B"}}}
	assert.Len(t, listItems(list), 2)
}
