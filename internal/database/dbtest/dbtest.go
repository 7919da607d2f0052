// Package dbtest provides in-memory stand-ins for pgx transactions so store
// code can be exercised without a running Postgres.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// BeginFunc adapts a function to database.Beginner.
type BeginFunc func(ctx context.Context) (pgx.Tx, error)

func (f BeginFunc) Begin(ctx context.Context) (pgx.Tx, error) { return f(ctx) }

// Tx records every statement it receives and delegates results to the
// optional hooks. Zero hooks mean "succeed with nothing".
type Tx struct {
	ExecFn     func(sql string, args []any) (pgconn.CommandTag, error)
	QueryFn    func(sql string, args []any) (pgx.Rows, error)
	QueryRowFn func(sql string, args []any) pgx.Row
	CommitErr  error

	mu         sync.Mutex
	statements []string
	committed  bool
	rolledBack bool
}

func (t *Tx) record(sql string) {
	t.mu.Lock()
	t.statements = append(t.statements, sql)
	t.mu.Unlock()
}

func (t *Tx) Statements() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.statements...)
}

func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// RolledBack reports whether Rollback ran before any successful commit.
func (t *Tx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *Tx) Commit(context.Context) error {
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.mu.Lock()
	t.committed = true
	t.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("dbtest: CopyFrom not supported")
}

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return batchResults{} }
func (t *Tx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *Tx) Conn() *pgx.Conn                                        { return nil }

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *Tx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.record(sql)
	if t.ExecFn == nil {
		return pgconn.NewCommandTag("OK"), nil
	}
	return t.ExecFn(sql, args)
}

func (t *Tx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	t.record(sql)
	if t.QueryFn == nil {
		return &Rows{}, nil
	}
	return t.QueryFn(sql, args)
}

func (t *Tx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	t.record(sql)
	if t.QueryRowFn == nil {
		return Row{Err: pgx.ErrNoRows}
	}
	return t.QueryRowFn(sql, args)
}

// Row scans Values positionally into the destinations.
type Row struct {
	Values []any
	Err    error
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return scanValues(r.Values, dest)
}

// Rows iterates over Data, one slice of values per row.
type Rows struct {
	Data    [][]any
	ErrWith error
	idx     int
	closed  bool
}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return r.ErrWith }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

func (r *Rows) Next() bool {
	if r.closed || r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.Data) {
		return errors.New("dbtest: Scan called without a current row")
	}
	return scanValues(r.Data[r.idx-1], dest)
}

func (r *Rows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.Data) {
		return nil, errors.New("dbtest: Values called without a current row")
	}
	return r.Data[r.idx-1], nil
}

type batchResults struct{}

func (batchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, nil }
func (batchResults) Query() (pgx.Rows, error)         { return &Rows{}, nil }
func (batchResults) QueryRow() pgx.Row                { return Row{Err: pgx.ErrNoRows} }
func (batchResults) Close() error                     { return nil }

func scanValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("dbtest: %d values for %d destinations", len(values), len(dest))
	}
	for i := range dest {
		if err := assign(dest[i], values[i]); err != nil {
			return fmt.Errorf("dbtest: column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest any, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a pointer", dest)
	}
	target := dv.Elem()
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	val := reflect.ValueOf(value)
	switch {
	case val.Type().AssignableTo(target.Type()):
		target.Set(val)
	case target.Kind() == reflect.Pointer && val.Type().AssignableTo(target.Type().Elem()):
		ptr := reflect.New(target.Type().Elem())
		ptr.Elem().Set(val)
		target.Set(ptr)
	case val.Kind() == target.Kind() && val.Type().ConvertibleTo(target.Type()):
		target.Set(val.Convert(target.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}
