package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_lifecycle.up.sql
var lifecycleMigrationSQL string

// Tables owned by the organizations aggregate. The cleanup cascade and the
// display joins read them, so they must exist before this service starts.
var externalTables = []string{
	"users",
	"organizations",
	"hiring_managers",
	"jobs",
	"leads",
	"organization_notes",
	"organization_history",
	"organization_documents",
}

var ownedTables = []string{
	"organization_transfers",
	"delete_requests",
	"scheduled_tasks",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	ok, err := db.hasTables(ctx, externalTables)
	if err != nil {
		return fmt.Errorf("check external tables: %w", err)
	}
	if !ok {
		return fmt.Errorf("organization tables are missing; expected %v", externalTables)
	}

	ok, err = db.hasTables(ctx, ownedTables)
	if err != nil {
		return fmt.Errorf("check lifecycle tables: %w", err)
	}

	// The migration only uses IF NOT EXISTS, so running it again also
	// backfills indexes added after the tables were first created.
	if !ok {
		slog.Info("lifecycle tables missing; applying migration 001")
	}
	if _, err := db.Pool.Exec(ctx, lifecycleMigrationSQL); err != nil {
		return fmt.Errorf("apply lifecycle migration: %w", err)
	}

	ok, err = db.hasTables(ctx, ownedTables)
	if err != nil {
		return fmt.Errorf("re-check tables after migration: %w", err)
	}
	if !ok {
		return fmt.Errorf("schema initialization incomplete: lifecycle tables are still missing")
	}

	slog.Info("database schema ensured")
	return nil
}

func (db *DB) hasTables(ctx context.Context, tables []string) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = ANY($1)
	`, tables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(tables), nil
}
