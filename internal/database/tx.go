package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"org-lifecycle/internal/model"
)

const maxTxAttempts = 3

// Postgres SQLSTATEs that mean "nothing was applied, run it again".
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// WithTx runs fn inside a transaction on its own connection. fn's error
// rolls the transaction back and is returned unchanged; begin and commit
// failures are returned as store errors. The whole transaction is retried
// when Postgres aborts it with a serialization failure or deadlock.
func WithTx(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt < maxTxAttempts {
			slog.WarnContext(ctx, "retrying aborted transaction", "attempt", attempt, "error", err)
		}
	}
	return err
}

func runTx(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return model.StoreError("begin transaction", err)
	}
	// Rollback after a successful commit is a no-op; the connection goes
	// back to the pool on either path.
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.StoreError("commit transaction", err)
	}
	return nil
}

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}
