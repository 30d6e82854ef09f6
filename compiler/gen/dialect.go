package gen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/entgen/dialect"
	"github.com/syssam/entgen/dialect/sql/schema"
)

// Dialect is the storage dialect of an entity. It is a closed set:
// PrimaryRelational has a backend, Unimplemented names a recognized dialect
// that does not.
type Dialect interface {
	// String returns the dialect name.
	String() string
	dialect()
}

type (
	// PrimaryRelational is the PostgreSQL dialect.
	PrimaryRelational struct{}

	// Unimplemented is a recognized dialect without a backend. Generating
	// code for it fails with an UnimplementedDialectError.
	Unimplemented struct {
		Name string
	}
)

func (PrimaryRelational) String() string { return dialect.Postgres }
func (PrimaryRelational) dialect() {}

func (u Unimplemented) String() string { return u.Name }
func (Unimplemented) dialect() {}

// ParseDialect parses the `dialect` entity attribute.
func ParseDialect(s string) (Dialect, error) {
	name, err := dialect.Parse(s)
	if err != nil {
		return nil, err
	}
	if name == dialect.Postgres {
		return PrimaryRelational{}, nil
	}
	return Unimplemented{Name: name}, nil
}

// backendFor returns the dialect backend of t, or an UnimplementedDialectError.
func backendFor(t *Type) (PrimaryRelational, error) {
	switch d := t.Dialect.(type) {
	case PrimaryRelational:
		return d, nil
	case nil:
		return PrimaryRelational{}, nil
	default:
		return PrimaryRelational{}, NewUnimplementedDialectError(t.Name, d.String())
	}
}

// EntityGenerator generates the dialect-neutral code of an entity.
// Each method is called once per entity.
type EntityGenerator interface {
	// GenEntity generates the entity struct, DTOs and projections ({entity}.go).
	GenEntity(t *Type) *jen.File
	// GenFilter generates the query filter ({entity}_filter.go).
	GenFilter(t *Type) *jen.File
	// GenRepository generates the repository interface ({entity}_repository.go).
	GenRepository(t *Type) *jen.File
}

// BackendGenerator generates the dialect implementation of an entity.
type BackendGenerator interface {
	// GenBackend generates the repository implementation ({entity}_postgres.go).
	// It fails for entities whose dialect has no backend.
	GenBackend(t *Type) (*jen.File, error)
	// GenMigration generates the DDL constants ({entity}_migration.go).
	GenMigration(t *Type) *jen.File
	// Table returns the DDL model of the entity table.
	Table(t *Type) *schema.Table
}

// FeatureGenerator generates the feature-gated code of an entity.
type FeatureGenerator interface {
	// GenCommands generates CQRS payloads, results, handler and dispatcher ({entity}_command.go).
	GenCommands(t *Type) *jen.File
	// GenEvents generates the lifecycle event union ({entity}_event.go).
	GenEvents(t *Type) *jen.File
	// GenPolicy generates the policy contract and enforcing repository ({entity}_policy.go).
	GenPolicy(t *Type) *jen.File
	// GenStream generates the notification channel and subscriber ({entity}_stream.go).
	GenStream(t *Type) *jen.File
	// GenHooks generates the hooks contract and hooked repository ({entity}_hook.go).
	GenHooks(t *Type) *jen.File
	// GenTx generates the transaction-bound repository ({entity}_tx.go).
	GenTx(t *Type) *jen.File
}

// DialectGenerator is implemented by the code generation backend.
//
//	import "github.com/syssam/entgen/compiler/gen/sql"
//
//	g := gen.NewJenniferGenerator(graph, outDir)
//	g.WithDialect(sql.NewDialect(g))
type DialectGenerator interface {
	// Name returns the dialect name.
	Name() string
	EntityGenerator
	BackendGenerator
	FeatureGenerator
}

// GeneratorHelper provides helper methods for dialect implementations.
// JenniferGenerator implements this interface, allowing dialect packages
// to use helper methods without importing the full generator.
type GeneratorHelper interface {
	// NewFile creates a new Jennifer file with the standard header comment.
	NewFile(pkg string) *jen.File

	// GoType returns the Go type of a stored field value.
	GoType(f *Field) jen.Code

	// BaseType returns the Go type without the optional pointer.
	BaseType(f *Field) jen.Code

	// PatchType returns the Go type of a field in a partial update.
	PatchType(f *Field) jen.Code

	// IDType returns the Go type of the identifier of t.
	IDType(t *Type) jen.Code

	// StructTags returns the struct tags for a field.
	StructTags(f *Field) map[string]string

	// RuntimePkg returns the import path of the entgen runtime package.
	RuntimePkg() string

	// SQLPkg returns the import path of the dialect/sql package.
	SQLPkg() string

	// StreamPkg returns the import path of the stream package.
	StreamPkg() string

	// PrivacyPkg returns the import path of the privacy package.
	PrivacyPkg() string

	// Graph returns the schema graph.
	Graph() *Graph

	// Pkg returns the output package name.
	Pkg() string
}

// GoType returns the Go type of a stored field value.
func GoType(f *Field) jen.Code {
	return f.Type.GoType()
}

// BaseType returns the Go type of a field without the optional pointer.
func BaseType(f *Field) jen.Code {
	return f.Type.GoBase()
}

// PatchType returns the Go type of a field in a partial update: a pointer
// to the base type, so that nil means "unchanged".
func PatchType(f *Field) jen.Code {
	return jen.Op("*").Add(f.Type.GoBase())
}

// StructTags returns the db and json tags of a field.
func StructTags(f *Field) map[string]string {
	json := f.Name
	if f.IsOptional() || f.IsArray() {
		json += ",omitempty"
	}
	return map[string]string{"db": f.ColumnName(), "json": json}
}
