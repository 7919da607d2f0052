package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"org-lifecycle/internal/database"
	"org-lifecycle/internal/model"
)

// Assignment is one "column = value" pair of a transition UPDATE.
type Assignment struct {
	Column string
	Value  any
}

// Kind describes how one request table is read, written and transitioned.
// SelectSQL must alias the request table as r and stop before WHERE.
type Kind[T any] struct {
	Name      model.RequestKind
	Table     string
	SelectSQL string
	Insert    func(record T) (sql string, args []any)
	Scan      func(row pgx.Row) (T, error)
	Decide    func(t model.Transition) []Assignment
	Validate  func(record T) error
}

// Ledger is the append-and-transition store shared by every request kind.
type Ledger[T any] struct {
	db   database.Store
	kind Kind[T]
}

func NewLedger[T any](db database.Store, kind Kind[T]) *Ledger[T] {
	return &Ledger[T]{db: db, kind: kind}
}

func (l *Ledger[T]) Kind() model.RequestKind {
	return l.kind.Name
}

// Create validates record, inserts it as pending and returns the stored row.
func (l *Ledger[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	if err := l.kind.Validate(record); err != nil {
		return zero, err
	}

	query, args := l.kind.Insert(record)
	var id int64
	if err := l.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return zero, model.StoreError("create "+string(l.kind.Name), err)
	}

	return l.GetByID(ctx, id)
}

func (l *Ledger[T]) GetByID(ctx context.Context, id int64) (T, error) {
	return l.getByID(ctx, l.db, id)
}

func (l *Ledger[T]) getByID(ctx context.Context, q database.Querier, id int64) (T, error) {
	record, err := l.kind.Scan(q.QueryRow(ctx, l.kind.SelectSQL+` WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", l.kind.Name, id, model.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, model.StoreError("get "+string(l.kind.Name), err)
	}
	return record, nil
}

// ListPending returns pending requests, newest first.
func (l *Ledger[T]) ListPending(ctx context.Context) ([]T, error) {
	return l.ListByStatus(ctx, model.StatusPending)
}

func (l *Ledger[T]) ListByStatus(ctx context.Context, status model.RequestStatus) ([]T, error) {
	if !status.Valid() {
		return nil, model.NewValidationError("status", "unknown status "+string(status))
	}
	return l.list(ctx, ` WHERE r.status = $1 ORDER BY r.created_at DESC, r.id DESC`, string(status))
}

func (l *Ledger[T]) list(ctx context.Context, clause string, args ...any) ([]T, error) {
	rows, err := l.db.Query(ctx, l.kind.SelectSQL+clause, args...)
	if err != nil {
		return nil, model.StoreError("list "+string(l.kind.Name), err)
	}
	defer rows.Close()

	records := make([]T, 0)
	for rows.Next() {
		record, err := l.kind.Scan(rows)
		if err != nil {
			return nil, model.StoreError("scan "+string(l.kind.Name), err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StoreError("list "+string(l.kind.Name), err)
	}
	return records, nil
}

// Transition moves a pending request to t.To. The UPDATE only matches rows
// that are still pending, which is the sole concurrency guard: of two racing
// transitions exactly one matches, the other gets ErrConflictOrNotFound.
func (l *Ledger[T]) Transition(ctx context.Context, id int64, t model.Transition) (T, error) {
	var result T
	if err := t.Validate(); err != nil {
		return result, err
	}

	query, args := buildTransition(l.kind.Table, l.kind.Decide(t), t, id)
	err := database.WithTx(ctx, l.db, func(tx pgx.Tx) error {
		var updatedID int64
		err := tx.QueryRow(ctx, query, args...).Scan(&updatedID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s %d: %w", l.kind.Name, id, model.ErrConflictOrNotFound)
		}
		if err != nil {
			return model.StoreError("transition "+string(l.kind.Name), err)
		}

		record, err := l.getByID(ctx, tx, updatedID)
		if err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func buildTransition(table string, sets []Assignment, t model.Transition, id int64) (string, []any) {
	parts := make([]string, 0, len(sets)+2)
	args := make([]any, 0, len(sets)+3)

	args = append(args, string(t.To))
	parts = append(parts, fmt.Sprintf("status = $%d", len(args)))
	for _, set := range sets {
		args = append(args, set.Value)
		parts = append(parts, fmt.Sprintf("%s = $%d", set.Column, len(args)))
	}
	args = append(args, t.At)
	parts = append(parts, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d AND status = '%s' RETURNING id`,
		table, strings.Join(parts, ", "), len(args), model.StatusPending)
	return query, args
}
