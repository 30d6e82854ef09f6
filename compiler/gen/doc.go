// Package gen builds the entity model of entgen and drives code generation.
//
// # Architecture
//
// The pipeline follows this flow:
//
//	Annotation tree (compiler/load: YAML/JSON)
//	        ↓
//	   Attribute extraction (EntityAttrs, FieldAttrs, Command, Projection)
//	        ↓
//	   Type (validated, read-only model) and Graph (relations resolved)
//	        ↓
//	   DialectGenerator (compiler/gen/sql)
//	        ↓
//	   Generated code and migrations
//
// The generator interfaces live here and the implementation lives in
// compiler/gen/sql, which imports this package. The CLI wires them together:
//
//	g := gen.NewJenniferGenerator(graph, outDir)
//	g.WithDialect(sql.NewDialect(g))
//	err := g.Generate(ctx)
//
// # Error Handling
//
// Errors are typed and match sentinel values with errors.Is:
//
//   - SchemaError: structural faults in an entity (ErrInvalidSchema)
//   - ValidationError: malformed attribute values (ErrValidationFailed)
//   - ConfigError: invalid options (ErrMissingConfig)
//   - GenerationError: failures while writing output (ErrGenerationFailed)
//   - UnimplementedDialectError: a dialect without backend (ErrUnsupportedDialect)
//
// Faults within one entity are joined with errors.Join. NewGraph stops at
// the first failing entity.
//
// # Configuration
//
//	cfg, err := gen.NewConfig(
//	    gen.WithTarget("./store"),
//	    gen.WithPackage("github.com/org/project/store"),
//	    gen.WithFeatures(gen.FeatureEvents, gen.FeatureMigrations),
//	    gen.WithMigrationDir("./migrations"),
//	)
//
// Features enabled in the config apply to every entity; an entity
// attribute of the same name overrides them.
//
// # Generated Output
//
// Per entity, depending on its features and SQL level:
//
//	{target}/
//	├── {entity}.go             // entity, DTOs, response, projections
//	├── {entity}_filter.go      // query filter
//	├── {entity}_repository.go  // repository interface
//	├── {entity}_postgres.go    // PostgreSQL repository
//	├── {entity}_migration.go   // DDL constants
//	├── {entity}_command.go     // CQRS commands and dispatcher
//	├── {entity}_event.go       // lifecycle events
//	├── {entity}_policy.go      // authorization policy
//	├── {entity}_hook.go        // hooks and hooked repository
//	├── {entity}_stream.go      // LISTEN/NOTIFY subscriber
//	└── {entity}_tx.go          // transaction-bound repository
package gen
