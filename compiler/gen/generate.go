package gen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
)

// Artifact names, also used as metric labels and error phases.
const (
	ArtifactEntity     = "entity"
	ArtifactFilter     = "filter"
	ArtifactRepository = "repository"
	ArtifactBackend    = "backend"
	ArtifactMigration  = "migration"
	ArtifactCommand    = "command"
	ArtifactEvent      = "event"
	ArtifactPolicy     = "policy"
	ArtifactHook       = "hook"
	ArtifactStream     = "stream"
	ArtifactTx         = "tx"
)

// Artifact is one generated file of an entity.
type Artifact struct {
	Kind string
	File string
}

// dialectSpecific reports whether an artifact carries PostgreSQL code and
// so requires an implemented dialect.
func dialectSpecific(kind string) bool {
	switch kind {
	case ArtifactBackend, ArtifactMigration, ArtifactStream, ArtifactTx:
		return true
	}
	return false
}

// Artifacts returns the files generated for t, in a fixed order.
func Artifacts(t *Type) []Artifact {
	base := t.FileName()
	as := []Artifact{{Kind: ArtifactEntity, File: base + ".go"}}
	add := func(ok bool, kind string) {
		if ok {
			as = append(as, Artifact{Kind: kind, File: base + "_" + kind + ".go"})
		}
	}
	add(t.HasFilter(), ArtifactFilter)
	add(t.HasRepository(), ArtifactRepository)
	if t.HasBackend() {
		as = append(as, Artifact{Kind: ArtifactBackend, File: base + "_postgres.go"})
	}
	add(t.HasFeature(FeatureMigrations.Name), ArtifactMigration)
	add(t.HasFeature(FeatureCommands.Name) && len(t.Commands) > 0, ArtifactCommand)
	add(t.HasFeature(FeatureEvents.Name), ArtifactEvent)
	add(t.HasFeature(FeaturePolicy.Name) && t.HasRepository(), ArtifactPolicy)
	add(t.HasFeature(FeatureHooks.Name) && t.HasRepository(), ArtifactHook)
	add(t.HasFeature(FeatureStreams.Name), ArtifactStream)
	add(t.HasFeature(FeatureTransactions.Name) && t.HasBackend(), ArtifactTx)
	return as
}

// JenniferGenerator generates the code of a graph with Jennifer. Files are
// rendered in parallel and formatted before they are written.
type JenniferGenerator struct {
	graph   *Graph
	workers int
	outDir  string
	pkg     string
	dialect DialectGenerator
}

// NewJenniferGenerator creates a new Jennifer-based generator.
// You must call WithDialect() to set a dialect before calling Generate().
//
// Example:
//
//	import "github.com/syssam/entgen/compiler/gen/sql"
//
//	g := gen.NewJenniferGenerator(graph, outDir)
//	g.WithDialect(sql.NewDialect(g))
//	err := g.Generate(ctx)
func NewJenniferGenerator(g *Graph, outDir string) *JenniferGenerator {
	return &JenniferGenerator{
		graph:   g,
		workers: g.workers(),
		outDir:  outDir,
		pkg:     g.PackageName(),
	}
}

// WithWorkers sets the number of parallel workers.
func (g *JenniferGenerator) WithWorkers(n int) *JenniferGenerator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// WithPackage sets the output package name.
func (g *JenniferGenerator) WithPackage(pkg string) *JenniferGenerator {
	if pkg != "" {
		g.pkg = pkg
	}
	return g
}

// WithDialect sets the dialect generator.
func (g *JenniferGenerator) WithDialect(d DialectGenerator) *JenniferGenerator {
	if d != nil {
		g.dialect = d
	}
	return g
}

// Generate runs the configured hooks around the code generation of the
// graph. Hooks are applied in reverse order, so the first hook runs
// outermost.
func (g *JenniferGenerator) Generate(ctx context.Context) (err error) {
	if g.dialect == nil {
		return NewConfigError("Dialect", nil, "no dialect set: call WithDialect() before Generate()")
	}
	start := time.Now()
	defer func() { g.graph.Metrics.run(start, err) }()

	var next Generator = GenerateFunc(g.generate)
	for i := len(g.graph.Hooks) - 1; i >= 0; i-- {
		next = g.graph.Hooks[i](next)
	}
	return next.Generate(ctx, g.graph)
}

func (g *JenniferGenerator) generate(ctx context.Context, graph *Graph) error {
	logger := graph.logger()
	for _, t := range graph.Nodes {
		for _, a := range Artifacts(t) {
			if !dialectSpecific(a.Kind) {
				continue
			}
			if _, err := backendFor(t); err != nil {
				return NewGenerationError(a.Kind, a.File, "no backend for dialect", err)
			}
		}
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return NewGenerationError("write", g.outDir, "create output directory", err)
	}

	type pending struct {
		name, fp string
		files    []string
	}
	var (
		done    []pending
		keep    = make(map[string]bool, len(graph.Nodes))
		written atomic.Int64
		cached  int
	)
	errg, ctx := errgroup.WithContext(ctx)
	errg.SetLimit(g.workers)
	for _, t := range graph.Nodes {
		keep[t.Name] = true
		as := Artifacts(t)
		fp, err := g.fingerprint(t)
		if err != nil {
			return err
		}
		if fp != "" && graph.Cache.Unchanged(t.Name, fp, g.outDir) {
			logger.Debug("entity unchanged, skipping", "type", t.Name)
			graph.Metrics.entity("cached")
			cached++
			continue
		}
		files := make([]string, 0, len(as))
		t := t
		for _, a := range as {
			a := a
			files = append(files, a.File)
			errg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				f, err := g.render(t, a)
				if err != nil {
					return err
				}
				n, err := writeGoFile(f, g.outDir, a.File)
				if err != nil {
					return NewGenerationError(a.Kind, a.File, "write file", err)
				}
				written.Add(1)
				graph.Metrics.fileWritten(a.Kind, n)
				logger.Debug("wrote file", "type", t.Name, "file", a.File, "bytes", n)
				return nil
			})
		}
		done = append(done, pending{name: t.Name, fp: fp, files: files})
	}
	if err := errg.Wait(); err != nil {
		return err
	}
	for _, p := range done {
		logger.Info("generated entity", "type", p.name, "files", len(p.files))
		graph.Metrics.entity("generated")
		if p.fp != "" {
			graph.Cache.Put(p.name, p.fp, p.files)
		}
	}
	if err := g.writeMigrations(graph); err != nil {
		return err
	}
	if graph.Cache != nil {
		graph.Cache.Prune(keep)
		if err := graph.Cache.Save(); err != nil {
			return NewGenerationError("cache", graph.Cache.Path(), "save cache", err)
		}
	}
	logger.Info("generation finished",
		"entities", len(graph.Nodes),
		"cached", cached,
		"files", written.Load(),
		"target", g.outDir,
	)
	return nil
}

// fingerprint returns the cache fingerprint of t, or "" without a cache.
func (g *JenniferGenerator) fingerprint(t *Type) (string, error) {
	if g.graph.Cache == nil {
		return "", nil
	}
	fp, err := Fingerprint(t)
	if err != nil {
		return "", NewGenerationError("cache", "", "fingerprint "+t.Name, err)
	}
	return fp, nil
}

func (g *JenniferGenerator) render(t *Type, a Artifact) (*jen.File, error) {
	var f *jen.File
	switch a.Kind {
	case ArtifactEntity:
		f = g.dialect.GenEntity(t)
	case ArtifactFilter:
		f = g.dialect.GenFilter(t)
	case ArtifactRepository:
		f = g.dialect.GenRepository(t)
	case ArtifactBackend:
		var err error
		if f, err = g.dialect.GenBackend(t); err != nil {
			return nil, NewGenerationError(a.Kind, a.File, "generate backend", err)
		}
	case ArtifactMigration:
		f = g.dialect.GenMigration(t)
	case ArtifactCommand:
		f = g.dialect.GenCommands(t)
	case ArtifactEvent:
		f = g.dialect.GenEvents(t)
	case ArtifactPolicy:
		f = g.dialect.GenPolicy(t)
	case ArtifactHook:
		f = g.dialect.GenHooks(t)
	case ArtifactStream:
		f = g.dialect.GenStream(t)
	case ArtifactTx:
		f = g.dialect.GenTx(t)
	default:
		return nil, NewGenerationError(a.Kind, a.File, "unknown artifact", nil)
	}
	if f == nil {
		return nil, NewGenerationError(a.Kind, a.File, fmt.Sprintf("%s generator returned no file", g.dialect.Name()), nil)
	}
	return f, nil
}

// writeMigrations writes the versioned migration files of every entity with
// migrations enabled. The version of an entity is its 1-based position in
// the graph, so output does not depend on which entities were cached.
func (g *JenniferGenerator) writeMigrations(graph *Graph) error {
	if graph.MigrationDir == "" {
		return nil
	}
	var tables []MigrationTable
	for i, t := range graph.Nodes {
		if !t.HasFeature(FeatureMigrations.Name) || !t.HasBackend() {
			continue
		}
		tables = append(tables, MigrationTable{Version: uint(i + 1), Table: g.dialect.Table(t)})
	}
	if len(tables) == 0 {
		return nil
	}
	if err := WriteMigrations(graph.MigrationDir, tables); err != nil {
		return NewGenerationError(ArtifactMigration, graph.MigrationDir, "write migration directory", err)
	}
	graph.logger().Info("wrote migrations", "dir", graph.MigrationDir, "tables", len(tables))
	return nil
}

// NewFile creates a new Jennifer file with the configured header comment.
func (g *JenniferGenerator) NewFile(pkg string) *jen.File {
	if pkg == "" {
		pkg = g.pkg
	}
	f := jen.NewFile(pkg)
	f.HeaderComment(g.graph.header())
	return f
}

// GoType returns the Go type of a stored field value.
func (g *JenniferGenerator) GoType(f *Field) jen.Code {
	return GoType(f)
}

// BaseType returns the Go type of a field without the optional pointer.
func (g *JenniferGenerator) BaseType(f *Field) jen.Code {
	return BaseType(f)
}

// PatchType returns the Go type of a field in a partial update.
func (g *JenniferGenerator) PatchType(f *Field) jen.Code {
	return PatchType(f)
}

// IDType returns the Go type of the identifier of t.
func (g *JenniferGenerator) IDType(t *Type) jen.Code {
	return t.ID().Type.GoBase()
}

// StructTags returns the struct tags for a field.
func (g *JenniferGenerator) StructTags(f *Field) map[string]string {
	return StructTags(f)
}

func (g *JenniferGenerator) RuntimePkg() string { return RuntimePkg }
func (g *JenniferGenerator) SQLPkg() string { return SQLPkg }
func (g *JenniferGenerator) StreamPkg() string { return StreamPkg }
func (g *JenniferGenerator) PrivacyPkg() string { return PrivacyPkg }

// Graph returns the schema graph.
func (g *JenniferGenerator) Graph() *Graph {
	return g.graph
}

// Pkg returns the output package name.
func (g *JenniferGenerator) Pkg() string {
	return g.pkg
}

// Logger returns the logger of the graph configuration.
func (g *JenniferGenerator) Logger() *slog.Logger {
	return g.graph.logger()
}

// OutDir returns the output directory.
func (g *JenniferGenerator) OutDir() string {
	return g.outDir
}

// Verify JenniferGenerator implements GeneratorHelper at compile time.
var _ GeneratorHelper = (*JenniferGenerator)(nil)

// Clean removes the files generated for t from dir. Missing files are
// ignored.
func Clean(dir string, t *Type) error {
	for _, a := range Artifacts(t) {
		if err := os.Remove(filepath.Join(dir, a.File)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
