package sql

import (
	"context"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/compiler/gen"
	"github.com/syssam/entgen/compiler/load"
)

func newGraph(t *testing.T, dir string, opts ...gen.Option) *gen.Graph {
	t.Helper()
	var schemas []*load.Schema
	for _, doc := range []string{productDoc, reviewDoc} {
		ss, err := load.ParseBytes([]byte(doc), "test.yaml")
		require.NoError(t, err)
		schemas = append(schemas, ss...)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []gen.Option{gen.WithLogger(logger), gen.WithTarget(dir), gen.WithPackage("github.com/acme/shop/store")}
	cfg, err := gen.NewConfig(append(base, opts...)...)
	require.NoError(t, err)
	g, err := gen.NewGraph(cfg, schemas...)
	require.NoError(t, err)
	return g
}

func TestDialect(t *testing.T) {
	d := NewDialect(newMockHelper(t, productDoc))
	assert.Equal(t, "sql", d.Name())
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	g := newGraph(t, dir, gen.WithFeatures(gen.AllFeatures...))
	require.NoError(t, Generate(context.Background(), g))

	fset := token.NewFileSet()
	for _, typ := range g.Nodes {
		artifacts := gen.Artifacts(typ)
		require.NotEmpty(t, artifacts)
		for _, a := range artifacts {
			path := filepath.Join(dir, a.File)
			b, err := os.ReadFile(path)
			require.NoError(t, err, a.File)
			assert.Contains(t, string(b), "// Code generated by entgen. DO NOT EDIT.")

			file, err := parser.ParseFile(fset, path, b, parser.AllErrors)
			require.NoError(t, err, a.File)
			assert.Equal(t, "store", file.Name.Name)
		}
	}
	assert.FileExists(t, filepath.Join(dir, "product_postgres.go"))
	assert.FileExists(t, filepath.Join(dir, "product_stream.go"))
	assert.FileExists(t, filepath.Join(dir, "review_tx.go"))
}

func TestGenerate_MissingTarget(t *testing.T) {
	err := Generate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, gen.IsConfigError(err))
}

func TestGenerate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	g := newGraph(t, dir)
	require.NoError(t, Generate(context.Background(), g))
	first, err := os.ReadFile(filepath.Join(dir, "product_postgres.go"))
	require.NoError(t, err)

	require.NoError(t, Generate(context.Background(), g))
	second, err := os.ReadFile(filepath.Join(dir, "product_postgres.go"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
