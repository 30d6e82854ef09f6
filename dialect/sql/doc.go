// Package sql provides the runtime primitives that generated PostgreSQL
// repositories are built on.
//
// # Executing statements
//
// Generated repositories accept any ExecQuerier, which is satisfied by
// *sql.DB, *sql.Tx and *sql.Conn:
//
//	db, err := sql.Open(dialect.Postgres, dsn)
//	repo := ent.NewPgProductRepository(db)
//
// Transactions are scoped with WithTx, which commits on success and rolls
// back on error or panic:
//
//	err := sql.WithTx(ctx, db, func(tx *sql.Tx) error {
//	    return ent.NewPgProductRepository(tx).Delete(ctx, id)
//	})
//
// # Dynamic filters
//
// Where accumulates conditions and their bind values as pairs, so the
// positional index of every placeholder always matches the position of
// its argument:
//
//	w := sql.NewWhere()
//	w.Raw("deleted_at IS NULL")
//	w.EQ("sku", "A-1")          // sku = $1
//	w.ILike("name", "50%")      // name ILIKE $2, bound to %50\%%
//	w.GTE("price", 10)          // price >= $3
//
//	q, args := sql.Select("id", "sku").From("inventory.products").
//	    Where(w).OrderDesc("id").Paginate(100, 0).Query()
//	// SELECT id, sku FROM inventory.products WHERE deleted_at IS NULL AND sku = $1
//	//   AND name ILIKE $2 AND price >= $3 ORDER BY id DESC LIMIT $4 OFFSET $5
//
// # Statistics
//
// NewStatsExecQuerier wraps an ExecQuerier with counters and slow-query
// reporting through log/slog.
package sql
