package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/syssam/entgen/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// ExecQuerier is the statement surface generated repositories run on.
// It is satisfied by *DB, *Tx and *sql.Conn.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type (
	// DB is an alias to sql.DB.
	DB = sql.DB
	// Tx is an alias to sql.Tx.
	Tx = sql.Tx
	// Row is an alias to sql.Row.
	Row = sql.Row
	// Rows is an alias to sql.Rows.
	Rows = sql.Rows
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime represents a time.Time that may be null.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ErrNoRows is returned by Row.Scan when no row matched.
var ErrNoRows = sql.ErrNoRows

// Open opens a database for the given dialect. Only Postgres is backed by
// a registered driver (lib/pq).
func Open(name, source string) (*DB, error) {
	d, err := dialect.Parse(name)
	if err != nil {
		return nil, err
	}
	if d != dialect.Postgres {
		return nil, fmt.Errorf("dialect/sql: no driver for dialect %q", d)
	}
	return sql.Open("postgres", source)
}

// OpenDB wraps an existing connector, mainly so callers can pass a
// pq.Connector built with custom dialing.
func OpenDB(c *pq.Connector) *DB {
	return sql.OpenDB(c)
}

// ctxVarsKey is the key used for attaching and reading the context variables.
type ctxVarsKey struct{}

type sessionVar struct{ k, v string }

// WithVar returns a new context holding a setting that WithTx applies with
// transaction scope before calling the user function.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	vars = append(vars[:len(vars):len(vars)], sessionVar{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, vars)
}

// VarFromContext returns the last value set for name in the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].k == name {
			return vars[i].v, true
		}
	}
	return "", false
}

// TxBeginner is implemented by *DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics. Settings
// attached with WithVar are applied through set_config(..., true) so they
// end with the transaction.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx *Tx) error) error {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithTxOptions is like WithTx with explicit transaction options.
func WithTxOptions(ctx context.Context, db TxBeginner, opts *TxOptions, fn func(tx *Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin tx: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := setVars(ctx, tx); err != nil {
		return errors.Join(err, rollback(tx))
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, rollback(tx))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dialect/sql: commit tx: %w", err)
	}
	return nil
}

func rollback(tx *Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("dialect/sql: rollback tx: %w", err)
	}
	return nil
}

func setVars(ctx context.Context, ex ExecQuerier) error {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	for _, s := range vars {
		if !isValidIdentifier(s.k) {
			return fmt.Errorf("dialect/sql: invalid session variable name: %q", s.k)
		}
		if _, err := ex.ExecContext(ctx, "SELECT set_config($1, $2, true)", s.k, s.v); err != nil {
			return fmt.Errorf("dialect/sql: set %s: %w", s.k, err)
		}
	}
	return nil
}

// Array adapts a Go slice for use as a Postgres array bind value or scan
// destination.
func Array(a any) interface {
	driver.Valuer
	sql.Scanner
} {
	return pq.Array(a)
}

// OptionalArray returns the array bind value of *p, or nil when p is nil.
// Generated update statements use it for patch fields of slice type.
func OptionalArray[T any](p *[]T) any {
	if p == nil {
		return nil
	}
	return Array(*p)
}

// NullScanner implements the sql.Scanner interface such that it
// can be used as a scan destination, similar to the types above.
type NullScanner struct {
	S     sql.Scanner
	Valid bool // Valid is true if the Scan value is not NULL.
}

// Scan implements the Scanner interface.
func (n *NullScanner) Scan(value any) error {
	n.Valid = value != nil
	if n.Valid {
		return n.S.Scan(value)
	}
	return nil
}
