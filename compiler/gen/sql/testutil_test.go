package sql

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/gen"
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
    - {name: Archive, requires_id: true, security: bearer}
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
  - name: tags
    type: "[]string"
    attrs:
      field: [create, update, response]
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

// mockHelper implements gen.GeneratorHelper on top of a graph built from
// YAML documents.
type mockHelper struct {
	graph *gen.Graph
	pkg   string
}

func newMockHelper(t testing.TB, docs ...string) *mockHelper {
	t.Helper()
	return newMockHelperWith(t, nil, docs...)
}

func newMockHelperWith(t testing.TB, opts []gen.Option, docs ...string) *mockHelper {
	t.Helper()
	var schemas []*load.Schema
	for _, doc := range docs {
		ss, err := load.ParseBytes([]byte(doc), "test.yaml")
		require.NoError(t, err)
		schemas = append(schemas, ss...)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, err := gen.NewConfig(append([]gen.Option{gen.WithLogger(logger), gen.WithPackage("github.com/acme/shop/store")}, opts...)...)
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, schemas...)
	require.NoError(t, err)
	return &mockHelper{graph: g, pkg: "store"}
}

// typ returns the entity with the given name.
func (m *mockHelper) typ(t testing.TB, name string) *gen.Type {
	t.Helper()
	typ, ok := m.graph.Type(name)
	require.True(t, ok, "type %s", name)
	return typ
}

func (m *mockHelper) NewFile(pkg string) *jen.File {
	if pkg == "" {
		pkg = m.pkg
	}
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by entgen. DO NOT EDIT.")
	return f
}

func (m *mockHelper) GoType(f *gen.Field) jen.Code { return gen.GoType(f) }
func (m *mockHelper) BaseType(f *gen.Field) jen.Code { return gen.BaseType(f) }
func (m *mockHelper) PatchType(f *gen.Field) jen.Code { return gen.PatchType(f) }
func (m *mockHelper) IDType(t *gen.Type) jen.Code { return t.ID().Type.GoBase() }
func (m *mockHelper) StructTags(f *gen.Field) map[string]string { return gen.StructTags(f) }
func (m *mockHelper) RuntimePkg() string { return gen.RuntimePkg }
func (m *mockHelper) SQLPkg() string { return gen.SQLPkg }
func (m *mockHelper) StreamPkg() string { return gen.StreamPkg }
func (m *mockHelper) PrivacyPkg() string { return gen.PrivacyPkg }
func (m *mockHelper) Graph() *gen.Graph { return m.graph }
func (m *mockHelper) Pkg() string { return m.pkg }

// Ensure mockHelper implements gen.GeneratorHelper.
var _ gen.GeneratorHelper = (*mockHelper)(nil)

var blanks = regexp.MustCompile(`[ \t]+`)

// render returns the formatted source of f with runs of blanks collapsed,
// so assertions do not depend on gofmt alignment.
func render(t testing.TB, f *jen.File) string {
	t.Helper()
	require.NotNil(t, f)
	return blanks.ReplaceAllString(f.GoString(), " ")
}

// jenString renders a single code fragment.
func jenString(c jen.Code) string {
	return fmt.Sprintf("%#v", c)
}

// indexOf returns the byte offset of sub in s, or -1.
func indexOf(s, sub string) int {
	return strings.Index(s, sub)
}
