package gen

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
)

// defaultHeader is written at the top of every generated Go file.
const defaultHeader = "Code generated by entgen. DO NOT EDIT."

// Import paths of the runtime packages generated code depends on.
const (
	RuntimePkg = "github.com/syssam/entgen"
	SQLPkg     = RuntimePkg + "/dialect/sql"
	StreamPkg  = RuntimePkg + "/stream"
	PrivacyPkg = RuntimePkg + "/privacy"
)

type (
	// Config holds the global codegen configuration to be
	// shared between all generated nodes.
	Config struct {
		// Target defines the filepath for the target directory that
		// holds the generated code.
		Target string

		// Package defines the Go package path of the target directory
		// mentioned above. Its last element is the generated package name.
		Package string

		// Header allows users to provide an optional header signature for
		// the generated files. It defaults to the standard 'go generate'
		// format: 'Code generated by entgen. DO NOT EDIT.'.
		Header string

		// Features defines a list of additional features enabled for every
		// entity. Entity attributes of the same name override them.
		Features []Feature

		// Workers bounds the number of files generated in parallel. Zero
		// means runtime.GOMAXPROCS(0).
		Workers int

		// Logger receives progress and debug output. Nil means slog.Default().
		Logger *slog.Logger

		// MigrationDir, when set, receives versioned up/down SQL files and
		// an atlas.sum integrity file for entities with migrations enabled.
		MigrationDir string

		// Metrics records generation counters and durations. Nil disables it.
		Metrics *Metrics

		// Cache skips entities whose model did not change since the last
		// run. Nil disables it.
		Cache *Cache

		// Hooks hold an optional list of Hooks to apply on the graph before/after the code-generation.
		Hooks []Hook
	}

	// Generator is the interface that wraps the Generate method.
	Generator interface {
		// Generate generates the code for the given graph.
		Generate(context.Context, *Graph) error
	}

	// The GenerateFunc type is an adapter to allow the use of ordinary
	// function as Generator. If f is a function with the appropriate signature,
	// GenerateFunc(f) is a Generator that calls f.
	GenerateFunc func(context.Context, *Graph) error

	// Hook defines the "generate middleware". A function that gets a Generator
	// and returns a Generator. For example:
	//
	//	hook := func(next gen.Generator) gen.Generator {
	//		return gen.GenerateFunc(func(ctx context.Context, g *Graph) error {
	//			fmt.Println("Graph:", g)
	//			return next.Generate(ctx, g)
	//		})
	//	}
	//
	Hook func(Generator) Generator

	// OutputConfig groups the output-related settings of a Config.
	OutputConfig struct {
		Target       string
		Package      string
		Header       string
		MigrationDir string
	}
)

// Generate calls f(ctx, g).
func (f GenerateFunc) Generate(ctx context.Context, g *Graph) error {
	return f(ctx, g)
}

// DefaultConfig returns a Config with the default header.
func DefaultConfig() *Config {
	return &Config{Header: defaultHeader}
}

// Output returns the output settings of the config.
func (c *Config) Output() OutputConfig {
	return OutputConfig{
		Target:       c.Target,
		Package:      c.Package,
		Header:       c.Header,
		MigrationDir: c.MigrationDir,
	}
}

// FeatureEnabled reports if the given feature name is enabled globally.
// Unknown names are reported as a ConfigError.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	if _, ok := FeatureByName(name); !ok {
		return false, NewConfigError("Features", name, "unknown feature")
	}
	for _, f := range c.Features {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// HasFeature reports if the given feature name is enabled globally.
func (c *Config) HasFeature(name string) bool {
	enabled, _ := c.FeatureEnabled(name)
	return enabled
}

// PackageName returns the name of the generated package: the last element
// of Package, or of Target when Package is empty.
func (c *Config) PackageName() string {
	if c.Package != "" {
		return path.Base(c.Package)
	}
	if c.Target != "" {
		if abs, err := filepath.Abs(c.Target); err == nil {
			return filepath.Base(abs)
		}
		return filepath.Base(c.Target)
	}
	return "entity"
}

func (c *Config) header() string {
	if c.Header == "" {
		return defaultHeader
	}
	return c.Header
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
