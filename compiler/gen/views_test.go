package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViews(t *testing.T) {
	typ := newTestType(t, productDoc)

	assert.Equal(t, []string{"sku", "name", "quantity"}, fieldNames(typ.CreateFields()))
	assert.Equal(t, []string{"sku", "name", "quantity"}, fieldNames(typ.UpdateFields()))
	assert.Equal(t, []string{"id", "sku", "name", "quantity", "created_at"}, fieldNames(typ.ResponseFields()))
	assert.Equal(t, []string{"sku", "name", "quantity"}, fieldNames(typ.FilterFields()))
	assert.Equal(t, []string{"created_at"}, fieldNames(typ.AutoFields()))
	assert.Empty(t, typ.RelationFields())
	assert.Equal(t, []string{"id", "sku", "name", "quantity"}, fieldNames(typ.InsertFields()))
	assert.True(t, typ.HasFilter())
	assert.True(t, typ.HasUpdate())
}

func TestViews_SkipRemovesFromAllViews(t *testing.T) {
	typ := newTestType(t, productDoc)
	secret, ok := typ.Field("secret")
	require.True(t, ok)
	require.True(t, secret.Skip)

	views := map[string][]*Field{
		"create":   typ.CreateFields(),
		"update":   typ.UpdateFields(),
		"response": typ.ResponseFields(),
		"insert":   typ.InsertFields(),
	}
	for name, fs := range views {
		assert.NotContains(t, fieldNames(fs), "secret", name)
	}
}

func TestViews_IDAlwaysInResponse(t *testing.T) {
	typ := newTestType(t, `
name: Tag
attrs: {table: tags}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
  - {name: label, type: string, attrs: {field: [create]}}
`)
	assert.Equal(t, []string{"id"}, fieldNames(typ.ResponseFields()))
	assert.False(t, typ.HasUpdate())
	assert.False(t, typ.HasFilter())
}

func TestViews_Recomputed(t *testing.T) {
	typ := newTestType(t, productDoc)
	first := typ.CreateFields()
	first[0] = nil
	assert.NotNil(t, typ.CreateFields()[0])
}

func TestProjections(t *testing.T) {
	typ := newTestType(t, `
name: Product
attrs:
  table: products
  projection:
    - "Public: sku, id"
    - {name: admin, fields: [id, sku, cost]}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
  - {name: sku, type: string}
  - {name: cost, type: decimal}
`)
	require.Len(t, typ.Projections, 2)

	public := typ.Projections[0]
	assert.Equal(t, "ProductPublic", public.StructName(typ.Name))
	assert.Equal(t, []string{"sku", "id"}, fieldNames(public.ResolvedFields()), "declared order is kept")

	admin := typ.Projections[1]
	assert.Equal(t, "ProductAdmin", admin.StructName(typ.Name))
	assert.Equal(t, []string{"id", "sku", "cost"}, fieldNames(admin.ResolvedFields()))
	assert.True(t, typ.HasProjection("admin"))
	assert.False(t, typ.HasProjection("Internal"))
}
