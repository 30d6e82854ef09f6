//go:build integration

package sql

import (
	"context"
	stdsql "database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	entsql "github.com/syssam/entgen/dialect/sql"
)

// startPostgres runs a throwaway PostgreSQL and returns a handle on it.
func startPostgres(t *testing.T) *entsql.DB {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("entgen"),
		postgres.WithUsername("entgen"),
		postgres.WithPassword("entgen"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := entsql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIntegration_Statements(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	h := newMockHelper(t, productDoc, reviewDoc)
	product, review := h.typ(t, "Product"), h.typ(t, "Review")

	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS inventory")
	require.NoError(t, err)
	for _, typ := range []string{"Product", "Review"} {
		ddl := table(h.typ(t, typ)).CreateSQL()
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err, ddl)
		// Applying the DDL twice is a no-op.
		_, err = db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	id := uuid.New()
	var (
		gotID   uuid.UUID
		sku     string
		name    string
		qty     int32
		tags    []string
		secret  stdsql.NullString
		created time.Time
		deleted stdsql.NullTime
	)
	err = db.QueryRowContext(ctx, insertSQL(product, returningSQL(product)),
		id, "SKU-1", "Widget", int32(3), pq.Array([]string{"blue", "small"}),
	).Scan(&gotID, &sku, &name, &qty, pq.Array(&tags), &secret, &created, &deleted)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, []string{"blue", "small"}, tags)
	assert.False(t, secret.Valid)
	assert.False(t, created.IsZero())
	assert.False(t, deleted.Valid)

	_, err = db.ExecContext(ctx, insertSQL(product, ""), uuid.New(), "SKU-2", "Bad", int32(-1), pq.Array([]string{}))
	assert.Error(t, err, "check constraint")

	_, err = db.ExecContext(ctx, insertSQL(review, ""), uuid.New(), id, int16(5))
	require.NoError(t, err)

	affected := func(query string) int64 {
		t.Helper()
		res, err := db.ExecContext(ctx, query, id)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		return n
	}
	count := func(query string) int {
		t.Helper()
		rows, err := db.QueryContext(ctx, query, id)
		require.NoError(t, err)
		defer rows.Close()
		n := 0
		for rows.Next() {
			n++
		}
		require.NoError(t, rows.Err())
		return n
	}

	assert.Equal(t, int64(1), affected(softDeleteSQL(product)))
	assert.Equal(t, int64(0), affected(softDeleteSQL(product)))
	assert.Equal(t, 0, count(findByIDSQL(product, true)))
	assert.Equal(t, 1, count(findByIDSQL(product, false)))
	assert.Equal(t, int64(1), affected(restoreSQL(product)))
	assert.Equal(t, int64(0), affected(restoreSQL(product)))
	assert.Equal(t, 1, count(lookupSQL(review, "product_id")))

	assert.Equal(t, int64(1), affected(hardDeleteSQL(product)))
	assert.Equal(t, 0, count(lookupSQL(review, "product_id")), "reviews cascade")
}
