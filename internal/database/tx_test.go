package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"org-lifecycle/internal/database/dbtest"
	"org-lifecycle/internal/model"
)

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		tx := &dbtest.Tx{}
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return tx, nil }), func(q pgx.Tx) error {
			_, err := q.Exec(ctx, "UPDATE t SET x = 1")
			return err
		})

		require.NoError(t, err)
		assert.True(t, tx.Committed())
		assert.False(t, tx.RolledBack())
		assert.Equal(t, []string{"UPDATE t SET x = 1"}, tx.Statements())
	})

	t.Run("rolls back and returns fn error unchanged", func(t *testing.T) {
		tx := &dbtest.Tx{}
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return tx, nil }), func(pgx.Tx) error {
			return model.ErrConflictOrNotFound
		})

		require.ErrorIs(t, err, model.ErrConflictOrNotFound)
		assert.NotErrorIs(t, err, model.ErrStore)
		assert.False(t, tx.Committed())
		assert.True(t, tx.RolledBack())
	})

	t.Run("begin failure is a store error", func(t *testing.T) {
		called := false
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) {
			return nil, errors.New("pool exhausted")
		}), func(pgx.Tx) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, model.ErrStore)
		assert.False(t, called)
	})

	t.Run("commit failure is a store error", func(t *testing.T) {
		tx := &dbtest.Tx{CommitErr: errors.New("connection lost")}
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return tx, nil }), func(pgx.Tx) error {
			return nil
		})

		require.ErrorIs(t, err, model.ErrStore)
		assert.True(t, tx.RolledBack())
	})

	t.Run("retries serialization failures", func(t *testing.T) {
		attempts := 0
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return &dbtest.Tx{}, nil }), func(pgx.Tx) error {
			attempts++
			if attempts < 3 {
				return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		attempts := 0
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return &dbtest.Tx{}, nil }), func(pgx.Tx) error {
			attempts++
			return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
		})

		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		assert.Equal(t, maxTxAttempts, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		err := WithTx(ctx, dbtest.BeginFunc(func(context.Context) (pgx.Tx, error) { return &dbtest.Tx{}, nil }), func(pgx.Tx) error {
			attempts++
			return &pgconn.PgError{Code: "23505", Message: "duplicate key"}
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}
