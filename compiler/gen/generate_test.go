package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/dialect/sql/schema"
)

// stubDialect emits one constant per artifact and records the calls.
type stubDialect struct {
	helper GeneratorHelper

	mu    sync.Mutex
	calls map[string]int
}

func newStubDialect(h GeneratorHelper) *stubDialect {
	return &stubDialect{helper: h, calls: make(map[string]int)}
}

func (d *stubDialect) file(kind string, t *Type) *jen.File {
	d.mu.Lock()
	d.calls[kind]++
	d.mu.Unlock()
	f := d.helper.NewFile(d.helper.Pkg())
	f.Const().Id(Pascal(kind) + t.Name).Op("=").Lit(t.Table)
	return f
}

func (d *stubDialect) Name() string { return "stub" }
func (d *stubDialect) GenEntity(t *Type) *jen.File { return d.file("entity", t) }
func (d *stubDialect) GenFilter(t *Type) *jen.File { return d.file("filter", t) }
func (d *stubDialect) GenRepository(t *Type) *jen.File { return d.file("repository", t) }
func (d *stubDialect) GenMigration(t *Type) *jen.File { return d.file("migration", t) }
func (d *stubDialect) GenCommands(t *Type) *jen.File { return d.file("command", t) }
func (d *stubDialect) GenEvents(t *Type) *jen.File { return d.file("event", t) }
func (d *stubDialect) GenPolicy(t *Type) *jen.File { return d.file("policy", t) }
func (d *stubDialect) GenStream(t *Type) *jen.File { return d.file("stream", t) }
func (d *stubDialect) GenHooks(t *Type) *jen.File { return d.file("hook", t) }
func (d *stubDialect) GenTx(t *Type) *jen.File { return d.file("tx", t) }

func (d *stubDialect) GenBackend(t *Type) (*jen.File, error) {
	if _, err := backendFor(t); err != nil {
		return nil, err
	}
	return d.file("backend", t), nil
}

func (d *stubDialect) Table(t *Type) *schema.Table {
	return schema.NewTable(t.Table).SetSchema(t.Schema).AddColumns(&schema.Column{Name: "id", Type: "UUID", PrimaryKey: true})
}

func (d *stubDialect) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[kind]
}

func newStubGenerator(t *testing.T, g *Graph) (*JenniferGenerator, *stubDialect) {
	t.Helper()
	jg := NewJenniferGenerator(g, g.Target)
	d := newStubDialect(jg)
	jg.WithDialect(d)
	return jg, d
}

func TestArtifacts(t *testing.T) {
	typ := newTestType(t, productDoc)
	var files []string
	for _, a := range Artifacts(typ) {
		files = append(files, a.File)
	}
	assert.Equal(t, []string{
		"product.go",
		"product_filter.go",
		"product_repository.go",
		"product_postgres.go",
		"product_command.go",
		"product_event.go",
	}, files)

	all := newTestType(t, productDoc, WithFeatures(AllFeatures...))
	assert.Len(t, Artifacts(all), 11)

	trait := newTestType(t, `
name: Tag
attrs: {table: tags, sql: trait, transactions: true, policy: true}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
`)
	files = files[:0]
	for _, a := range Artifacts(trait) {
		files = append(files, a.File)
	}
	assert.Equal(t, []string{"tag.go", "tag_repository.go", "tag_policy.go"}, files)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(WithTarget(dir), WithPackage("github.com/acme/shop/store"), WithFeatureNames("migrations"))
	g, err := NewGraph(cfg, parseSchemas(t, productDoc, reviewDoc)...)
	require.NoError(t, err)

	jg, d := newStubGenerator(t, g)
	require.NoError(t, jg.Generate(context.Background()))

	for _, typ := range g.Nodes {
		for _, a := range Artifacts(typ) {
			b, err := os.ReadFile(filepath.Join(dir, a.File))
			require.NoError(t, err, a.File)
			assert.Contains(t, string(b), "// Code generated by entgen. DO NOT EDIT.")
			assert.Contains(t, string(b), "package store")
		}
	}
	assert.Equal(t, 2, d.count("entity"))
	assert.Equal(t, 2, d.count("migration"))
	assert.Equal(t, 1, d.count("command"))
}

func TestGenerate_NoDialect(t *testing.T) {
	g, err := NewGraph(testConfig(), parseSchemas(t, reviewDoc)...)
	require.NoError(t, err)
	err = NewJenniferGenerator(g, t.TempDir()).Generate(context.Background())
	assert.True(t, IsConfigError(err))
}

func TestGenerate_UnimplementedDialect(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGraph(testConfig(WithTarget(dir)), parseSchemas(t, reviewDoc, `
name: Click
attrs: {table: clicks, dialect: clickhouse}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
`)...)
	require.NoError(t, err)

	jg, d := newStubGenerator(t, g)
	err = jg.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnimplementedDialect(err))
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Zero(t, d.count("entity"), "nothing is written")
}

func TestGenerate_TraitSkipsBackendCheck(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGraph(testConfig(WithTarget(dir)), parseSchemas(t, `
name: Click
attrs: {table: clicks, dialect: mongodb, sql: trait}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
`)...)
	require.NoError(t, err)
	jg, _ := newStubGenerator(t, g)
	require.NoError(t, jg.Generate(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "click_repository.go"))
	assert.NoFileExists(t, filepath.Join(dir, "click_postgres.go"))
}

func TestGenerate_UnimplementedDialectArtifacts(t *testing.T) {
	tests := []struct {
		name, attrs, file string
	}{
		{"migration on trait", "{table: clicks, dialect: clickhouse, sql: trait, migrations: true}", "click_migration.go"},
		{"migration without sql", "{table: clicks, dialect: mongodb, sql: none, migrations: true}", "click_migration.go"},
		{"stream on trait", "{table: clicks, dialect: clickhouse, sql: trait, streams: true}", "click_stream.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			g, err := NewGraph(testConfig(WithTarget(dir)), parseSchemas(t, `
name: Click
attrs: `+tt.attrs+`
fields:
  - {name: id, type: uuid, attrs: {id: true}}
`)...)
			require.NoError(t, err)

			jg, d := newStubGenerator(t, g)
			err = jg.Generate(context.Background())
			require.Error(t, err)
			assert.True(t, IsUnimplementedDialect(err))
			assert.Contains(t, err.Error(), tt.file)
			assert.Zero(t, d.count("entity"), "nothing is written")
			assert.NoFileExists(t, filepath.Join(dir, tt.file))
		})
	}
}

func TestGenerate_Hooks(t *testing.T) {
	var order []string
	hook := func(name string) Hook {
		return func(next Generator) Generator {
			return GenerateFunc(func(ctx context.Context, g *Graph) error {
				order = append(order, name+":before")
				err := next.Generate(ctx, g)
				order = append(order, name+":after")
				return err
			})
		}
	}
	dir := t.TempDir()
	g, err := NewGraph(testConfig(WithTarget(dir), WithHooks(hook("a"), hook("b"))), parseSchemas(t, reviewDoc)...)
	require.NoError(t, err)
	jg, _ := newStubGenerator(t, g)
	require.NoError(t, jg.Generate(context.Background()))
	assert.Equal(t, []string{"a:before", "b:before", "b:after", "a:after"}, order)

	stop := errors.New("stop")
	g.Hooks = []Hook{func(Generator) Generator {
		return GenerateFunc(func(context.Context, *Graph) error { return stop })
	}}
	assert.ErrorIs(t, jg.Generate(context.Background()), stop)
}

func TestGenerate_Cache(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, ".entgen.cache"))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	g, err := NewGraph(testConfig(WithTarget(dir), WithCache(cache), WithMetrics(m)), parseSchemas(t, productDoc, reviewDoc)...)
	require.NoError(t, err)

	jg, d := newStubGenerator(t, g)
	require.NoError(t, jg.Generate(context.Background()))
	assert.Equal(t, 2, d.count("entity"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.entities.WithLabelValues("generated")))

	require.NoError(t, jg.Generate(context.Background()))
	assert.Equal(t, 2, d.count("entity"), "unchanged entities are skipped")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.entities.WithLabelValues("cached")))

	require.NoError(t, os.Remove(filepath.Join(dir, "review.go")))
	require.NoError(t, jg.Generate(context.Background()))
	assert.Equal(t, 3, d.count("entity"), "missing output is regenerated")

	reopened, err := OpenCache(cache.Path())
	require.NoError(t, err)
	_, ok := reopened.Entry("Product")
	assert.True(t, ok)
}

func TestGenerate_MigrationDir(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	g, err := NewGraph(testConfig(WithTarget(dir), WithMigrationDir(migrations)), parseSchemas(t, productDoc, `
name: Review
attrs: {table: reviews, schema: inventory, migrations: true}
fields:
  - {name: id, type: uuid, attrs: {id: true}}
`)...)
	require.NoError(t, err)
	jg, _ := newStubGenerator(t, g)
	require.NoError(t, jg.Generate(context.Background()))

	up, down := schema.FileNames(2, "reviews")
	assert.FileExists(t, filepath.Join(migrations, up))
	assert.FileExists(t, filepath.Join(migrations, down))
	assert.FileExists(t, filepath.Join(migrations, "atlas.sum"))

	up, _ = schema.FileNames(1, "products")
	assert.NoFileExists(t, filepath.Join(migrations, up), "products has migrations off")

	d, err := schema.OpenDir(migrations)
	require.NoError(t, err)
	assert.NoError(t, d.Verify())
}

func TestGeneratorHelper(t *testing.T) {
	g, err := NewGraph(testConfig(WithPackage("github.com/acme/shop/store"), WithHeader("Custom header.")), parseSchemas(t, productDoc)...)
	require.NoError(t, err)
	jg := NewJenniferGenerator(g, t.TempDir())

	assert.Equal(t, "store", jg.Pkg())
	assert.Same(t, g, jg.Graph())
	assert.Equal(t, RuntimePkg, jg.RuntimePkg())
	assert.Equal(t, SQLPkg, jg.SQLPkg())
	assert.Equal(t, StreamPkg, jg.StreamPkg())
	assert.Equal(t, PrivacyPkg, jg.PrivacyPkg())

	f := jg.NewFile("")
	f.Var().Id("id").Add(jg.IDType(g.Nodes[0]))
	out := f.GoString()
	assert.Contains(t, out, "// Custom header.")
	assert.Contains(t, out, "package store")
	assert.Contains(t, out, "var id uuid.UUID")

	assert.Equal(t, "my", jg.WithPackage("my").Pkg())
	assert.Equal(t, 3, jg.WithWorkers(3).workers)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	typ := newTestType(t, productDoc)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "product.go"), nil, 0o644))
	require.NoError(t, Clean(dir, typ))
	assert.NoFileExists(t, filepath.Join(dir, "product.go"))
}
