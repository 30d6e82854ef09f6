package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/syssam/entgen/compiler/gen"
	"github.com/syssam/entgen/compiler/gen/sql"
	"github.com/syssam/entgen/compiler/load"
)

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	list := fs.Bool("list", false, "print the generated files")
	cfg, err := parseCommand(fs, args, lookup)
	if err != nil {
		return err
	}
	g, err := newGenerator(cfg, newLogger(cfg, stderr), nil)
	if err != nil {
		return err
	}
	graph, err := g.run(ctx)
	if err != nil {
		return err
	}
	if *list {
		for _, name := range generatedFiles(graph) {
			fmt.Fprintln(stdout, name)
		}
	}
	return nil
}

// generator runs the load, graph and code generation phases with a fixed
// configuration.
type generator struct {
	cfg     *Config
	logger  *slog.Logger
	metrics *gen.Metrics
	cache   *gen.Cache
}

// newGenerator opens the fingerprint cache of cfg, if any. metrics may be
// nil.
func newGenerator(cfg *Config, logger *slog.Logger, metrics *gen.Metrics) (*generator, error) {
	g := &generator{cfg: cfg, logger: logger, metrics: metrics}
	if cfg.Cache != "" {
		cache, err := gen.OpenCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		g.cache = cache
	}
	return g, nil
}

// run loads the schemas and generates their code. It returns the graph that
// was generated.
func (g *generator) run(ctx context.Context) (*gen.Graph, error) {
	schemas, err := (&load.Config{Paths: g.cfg.Schema, Logger: g.logger}).Load()
	if err != nil {
		return nil, err
	}
	opts := append(g.cfg.options(), gen.WithLogger(g.logger))
	if g.metrics != nil {
		opts = append(opts, gen.WithMetrics(g.metrics))
	}
	if g.cache != nil {
		opts = append(opts, gen.WithCache(g.cache))
	}
	c, err := gen.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	graph, err := gen.NewGraph(c, schemas...)
	if err != nil {
		return nil, err
	}
	if err := sql.Generate(ctx, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// generatedFiles returns the sorted paths of the files generated for graph.
func generatedFiles(graph *gen.Graph) []string {
	var names []string
	for _, t := range graph.Nodes {
		for _, a := range gen.Artifacts(t) {
			names = append(names, filepath.Join(graph.Target, a.File))
		}
	}
	sort.Strings(names)
	return names
}
