package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type beginnerFunc func(ctx context.Context) (pgx.Tx, error)

func (f beginnerFunc) Begin(ctx context.Context) (pgx.Tx, error) { return f(ctx) }

// scriptedQuery routes one statement of a stubTx script by SQL substring.
type scriptedQuery struct {
	contains string
	row      *stubRow
	execTag  pgconn.CommandTag
	execErr  error
	rows     *stubRows
	queryErr error
}

type stubTx struct {
	script    []scriptedQuery
	commitErr error
	committed bool
	rolled    bool
	execSQLs  []string
}

func (t *stubTx) find(sql string) *scriptedQuery {
	for i := range t.script {
		if strings.Contains(sql, t.script[i].contains) {
			return &t.script[i]
		}
	}
	return nil
}

func (t *stubTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execSQLs = append(t.execSQLs, sql)
	if q := t.find(sql); q != nil {
		return q.execTag, q.execErr
	}
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if q := t.find(sql); q != nil {
		if q.queryErr != nil {
			return nil, q.queryErr
		}
		if q.rows != nil {
			return q.rows, nil
		}
	}
	return &stubRows{}, nil
}

func (t *stubTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if q := t.find(sql); q != nil && q.row != nil {
		return q.row
	}
	return &stubRow{err: errors.New("unexpected QueryRow: " + sql)}
}

func (t *stubTx) Commit(context.Context) error   { t.committed = true; return t.commitErr }
func (t *stubTx) Rollback(context.Context) error { t.rolled = true; return nil }

func (t *stubTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *stubTx) Conn() *pgx.Conn { return nil }

func beginWith(tx *stubTx) beginnerFunc {
	return func(context.Context) (pgx.Tx, error) { return tx, nil }
}

type stubRow struct {
	vals []any
	err  error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

type stubRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}
func (r *stubRows) Scan(dest ...any) error { return assign(dest, r.rows[r.idx-1]) }
func (r *stubRows) Values() ([]any, error) { return nil, nil }
func (r *stubRows) RawValues() [][]byte    { return nil }
func (r *stubRows) Conn() *pgx.Conn        { return nil }

func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return errors.New("stub row arity mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = vals[i].(string)
		case *int:
			*p = vals[i].(int)
		case *bool:
			*p = vals[i].(bool)
		case *[]byte:
			*p = vals[i].([]byte)
		case *[]string:
			*p = vals[i].([]string)
		case **time.Time:
			if vals[i] == nil {
				*p = nil
			} else {
				ts := vals[i].(time.Time)
				*p = &ts
			}
		case *time.Time:
			*p = vals[i].(time.Time)
		default:
			return errors.New("stub row: unsupported dest type")
		}
	}
	return nil
}

// policyRowVals yields one scannable policy_documents row in column order.
func policyRowVals(id string, model string, version int, active bool, status string) []any {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return []any{
		id, model, "", version, active, status,
		[]byte(`[{"name":"name","label":"Name","type":"text"}]`),
		[]byte(`[{"operation":"read","allowed":[{"role":"any","condition":"self"}]}]`),
		[]byte(`[{"version":1,"changed_at":"2026-02-01T12:00:00Z"}]`),
		[]string{"core"}, "",
		"admin-1", "admin-1",
		now, nil, now, now,
	}
}
