package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenTx(t *testing.T) {
	h := newMockHelper(t, productDoc, reviewDoc)
	out := render(t, genTx(h, h.typ(t, "Product")))

	for _, want := range []string{
		"type ProductTxRepository struct {\n *PgProductRepository\n tx *sql.Tx\n}",
		"func NewProductTxRepository(tx *sql.Tx) *ProductTxRepository {",
		"PgProductRepository: NewPgProductRepository(tx),",
		"func (r *ProductTxRepository) Tx() *sql.Tx {\n return r.tx\n}",
		"func WithProductTx(ctx context.Context, db sql.TxBeginner, fn func(*ProductTxRepository) error) error {",
		"return sql.WithTx(ctx, db, func(tx *sql.Tx) error {\n return fn(NewProductTxRepository(tx))\n })",
	} {
		assert.Contains(t, out, want)
	}
}
