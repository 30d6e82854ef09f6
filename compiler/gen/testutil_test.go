package gen

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/load"
)

const productDoc = `
name: Product
doc: A stocked product.
attrs:
  table: products
  schema: inventory
  soft_delete: true
  returning: full
  events: true
  commands: true
  command:
    - Register
    - "Restock: quantity"
    - {name: Archive, requires_id: true}
  projection:
    - "Public: id, sku"
  has_many: [Review]
  index:
    - {name: idx_products_sku_qty, columns: [sku, quantity], unique: true, where: "quantity > 0"}
fields:
  - name: id
    type: uuid
    attrs: {id: true}
  - name: sku
    type: string
    attrs:
      field: [create, update, response]
      column: {unique: true}
      filter: eq
  - name: name
    type: string
    attrs:
      field: [create, update, response]
      filter: like
  - name: quantity
    type: int32
    attrs:
      field: [create, update, response]
      column: {default: "0", check: "quantity >= 0"}
      filter: range
  - name: secret
    type: string?
    attrs:
      field: [create]
      skip: true
  - name: created_at
    type: time
    attrs: {auto: true, field: [response], column: {default: "now()"}}
`

const reviewDoc = `
name: Review
attrs:
  table: reviews
  schema: inventory
fields:
  - name: id
    type: uuid
    attrs: {id: true}
  - name: product_id
    type: uuid
    attrs:
      field: [create, response]
      belongs_to: {target: Product, on_delete: cascade}
  - name: rating
    type: int16
    attrs: {field: [create, update, response]}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseSchemas(t testing.TB, docs ...string) []*load.Schema {
	t.Helper()
	var out []*load.Schema
	for _, doc := range docs {
		ss, err := load.ParseBytes([]byte(doc), "test.yaml")
		require.NoError(t, err)
		out = append(out, ss...)
	}
	return out
}

func testConfig(opts ...Option) *Config {
	c := MustNewConfig(append([]Option{WithLogger(quietLogger())}, opts...)...)
	return c
}

func newTestType(t testing.TB, doc string, opts ...Option) *Type {
	t.Helper()
	ss := parseSchemas(t, doc)
	require.Len(t, ss, 1)
	typ, err := NewType(testConfig(opts...), ss[0])
	require.NoError(t, err)
	return typ
}

func fieldNames(fs []*Field) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}
