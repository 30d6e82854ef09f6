package sql

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entgen/dialect"
)

func TestOpen(t *testing.T) {
	t.Run("UnknownDialect", func(t *testing.T) {
		_, err := Open("oracle", "")
		require.Error(t, err)
	})

	t.Run("UnimplementedDialect", func(t *testing.T) {
		_, err := Open(dialect.MongoDB, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no driver")
	})

	t.Run("Postgres", func(t *testing.T) {
		db, err := Open(dialect.Postgres, "postgres://localhost/none?sslmode=disable")
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})
}

func TestWithVars(t *testing.T) {
	ctx := WithVar(context.Background(), "app.tenant", "acme")
	ctx = WithVar(ctx, "app.user", "42")

	v, ok := VarFromContext(ctx, "app.tenant")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	_, ok = VarFromContext(ctx, "app.missing")
	assert.False(t, ok)

	overridden := WithVar(ctx, "app.tenant", "globex")
	v, _ = VarFromContext(overridden, "app.tenant")
	assert.Equal(t, "globex", v)
	v, _ = VarFromContext(ctx, "app.tenant")
	assert.Equal(t, "acme", v, "parent context must not observe the override")
}

func TestWithTx(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT set_config\(\$1, \$2, true\)`).
			WithArgs("app.tenant", "acme").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM inventory.products").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ctx := WithVar(context.Background(), "app.tenant", "acme")
		err = WithTx(ctx, db, func(tx *Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM inventory.products")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err = WithTx(context.Background(), db, func(*Tx) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnPanic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = WithTx(context.Background(), db, func(*Tx) error { panic("kaboom") })
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidVarName", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		ctx := WithVar(context.Background(), "bad name; DROP", "x")
		err = WithTx(ctx, db, func(*Tx) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid session variable name")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("no conn"))
		err = WithTx(context.Background(), db, func(*Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin tx")
	})
}

func TestArray(t *testing.T) {
	v, err := Array([]string{"a", "b"}).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a","b"}`, v)

	var tags []string
	require.NoError(t, Array(&tags).Scan([]byte(`{x,y}`)))
	assert.Equal(t, []string{"x", "y"}, tags)

	assert.Nil(t, OptionalArray[string](nil))
	v, err = OptionalArray(&[]int64{1, 2}).(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, "{1,2}", v)
}

func TestNullScanner(t *testing.T) {
	var s NullString
	n := &NullScanner{S: &s}
	require.NoError(t, n.Scan(nil))
	assert.False(t, n.Valid)

	require.NoError(t, n.Scan("value"))
	assert.True(t, n.Valid)
	assert.Equal(t, "value", s.String)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, isValidIdentifier("app.tenant"))
	assert.True(t, isValidIdentifier("_x1"))
	assert.False(t, isValidIdentifier(""))
	assert.False(t, isValidIdentifier("1abc"))
	assert.False(t, isValidIdentifier("a b"))
}
