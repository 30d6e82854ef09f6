// Package sql provides the PostgreSQL code generation backend of the
// Jennifer generator.
//
// This package implements the gen.DialectGenerator interface. Every entity
// of the graph yields a fixed set of files, gated by its features and its
// sql level:
//
//	{output}/
//	├── {entity}.go             # Entity struct, request/response DTOs, projections
//	├── {entity}_filter.go      # Query filter and its WHERE builder
//	├── {entity}_repository.go  # Repository interface
//	├── {entity}_postgres.go    # Repository implementation
//	├── {entity}_migration.go   # DDL constants
//	├── {entity}_command.go     # Command payloads, results and dispatcher
//	├── {entity}_event.go       # Lifecycle event union
//	├── {entity}_policy.go      # Policy contract and enforcing repository
//	├── {entity}_hook.go        # Hooks contract and hooked repository
//	├── {entity}_stream.go      # Notification channel and subscriber
//	└── {entity}_tx.go          # Transaction-bound repository
//
// Usage:
//
//	import (
//	    "github.com/syssam/entgen/compiler/gen"
//	    "github.com/syssam/entgen/compiler/gen/sql"
//	)
//
//	generator := gen.NewJenniferGenerator(graph, outDir)
//	generator.WithDialect(sql.NewDialect(generator))
//	err := generator.Generate(ctx)
package sql

import (
	"context"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/compiler/gen"
	"github.com/syssam/entgen/dialect/sql/schema"
)

// Generate is a convenience function generating the code of g into its
// configured target directory. Hooks registered in the graph config run
// around the generation.
//
// Example:
//
//	import "github.com/syssam/entgen/compiler/gen/sql"
//	err := sql.Generate(ctx, graph)
func Generate(ctx context.Context, g *gen.Graph) error {
	if g == nil || g.Config == nil || g.Target == "" {
		return gen.NewConfigError("Target", nil, "missing target directory in config")
	}
	generator := gen.NewJenniferGenerator(g, g.Target)
	generator.WithDialect(NewDialect(generator))
	return generator.Generate(ctx)
}

// Dialect implements gen.DialectGenerator for PostgreSQL.
//
// Generated repositories use positional binds, RETURNING clauses,
// ILIKE filters, array columns and LISTEN/NOTIFY change streams.
type Dialect struct {
	helper gen.GeneratorHelper
}

// NewDialect creates a new PostgreSQL dialect generator.
// The helper parameter should be a *gen.JenniferGenerator.
func NewDialect(helper gen.GeneratorHelper) *Dialect {
	return &Dialect{helper: helper}
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "sql"
}

// GenEntity generates the entity file ({entity}.go).
// Includes: entity struct, create/update requests, response, projections.
func (d *Dialect) GenEntity(t *gen.Type) *jen.File {
	return genEntity(d.helper, t)
}

// GenFilter generates the query filter file ({entity}_filter.go).
func (d *Dialect) GenFilter(t *gen.Type) *jen.File {
	return genFilter(d.helper, t)
}

// GenRepository generates the repository interface ({entity}_repository.go).
func (d *Dialect) GenRepository(t *gen.Type) *jen.File {
	return genRepository(d.helper, t)
}

// GenBackend generates the PostgreSQL repository ({entity}_postgres.go).
// Entities of an unimplemented dialect fail with an
// UnimplementedDialectError.
func (d *Dialect) GenBackend(t *gen.Type) (*jen.File, error) {
	return genBackend(d.helper, t)
}

// GenMigration generates the DDL constants ({entity}_migration.go).
func (d *Dialect) GenMigration(t *gen.Type) *jen.File {
	return genMigration(d.helper, t)
}

// Table returns the DDL model of the entity table.
func (d *Dialect) Table(t *gen.Type) *schema.Table {
	return table(t)
}

// GenCommands generates the command file ({entity}_command.go).
func (d *Dialect) GenCommands(t *gen.Type) *jen.File {
	return genCommands(d.helper, t)
}

// GenEvents generates the event union ({entity}_event.go).
func (d *Dialect) GenEvents(t *gen.Type) *jen.File {
	return genEvents(d.helper, t)
}

// GenPolicy generates the policy file ({entity}_policy.go).
func (d *Dialect) GenPolicy(t *gen.Type) *jen.File {
	return genPolicy(d.helper, t)
}

// GenStream generates the change stream file ({entity}_stream.go).
func (d *Dialect) GenStream(t *gen.Type) *jen.File {
	return genStream(d.helper, t)
}

// GenHooks generates the hooks file ({entity}_hook.go).
func (d *Dialect) GenHooks(t *gen.Type) *jen.File {
	return genHooks(d.helper, t)
}

// GenTx generates the transactional repository ({entity}_tx.go).
func (d *Dialect) GenTx(t *gen.Type) *jen.File {
	return genTx(d.helper, t)
}

// Compile-time check that Dialect implements DialectGenerator.
var _ gen.DialectGenerator = (*Dialect)(nil)
