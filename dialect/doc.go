// Package dialect names the storage dialects an entity can target.
//
// Only Postgres has a generated backend. ClickHouse and MongoDB are
// recognized so that schemas declaring them parse, but the generator
// rejects them with an unimplemented-dialect error instead of emitting
// an empty implementation.
//
// # Sub-packages
//
//   - dialect/sql: runtime helpers used by generated repositories
//     (ExecQuerier, transactions, WHERE/SELECT assembly, query stats)
//   - dialect/sql/schema: the DDL model used to emit migrations
package dialect
