// Package rls enforces tenant row isolation for guarded queries. Every data
// operation runs inside one transaction that first sets the session-local
// tenant setting consulted by the database policies, so the setting and the
// statement always share the same pooled connection.
package rls

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"scopehub/internal/tenantctx"
)

// ErrMissingTenantContext indicates a guarded query was attempted with no
// tenant bound to the context. This is an internal invariant violation in the
// call site; the query is never executed.
var ErrMissingTenantContext = errors.New("rls: no tenant bound to context for guarded query")

// DB is the narrow persistence surface tenant-scoped repositories use. It
// mirrors the pgx verbs so repositories read like their unguarded peers.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Enforcer wraps a connection pool and scopes every statement to the tenant
// bound in the caller's context.
type Enforcer struct {
	pool TxBeginner
}

func NewEnforcer(pool TxBeginner) *Enforcer {
	return &Enforcer{pool: pool}
}

// begin opens a transaction and applies the session-local tenant settings on
// it. Fails closed when neither a tenant nor the bypass mark is present.
func (e *Enforcer) begin(ctx context.Context) (pgx.Tx, error) {
	tenantID, bound := tenantctx.TenantID(ctx)
	bypass := tenantctx.Bypassed(ctx)
	if !bound && !bypass {
		return nil, ErrMissingTenantContext
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if bypass {
		if _, err := tx.Exec(ctx, "SELECT set_config('app.bypass_rls', 'true', true)"); err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}
		return tx, nil
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_tenant_id', $1, true)", tenantID.String()); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.bypass_rls', 'false', true)"); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// Exec runs a guarded statement and commits.
func (e *Enforcer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return pgconn.CommandTag{}, err
	}
	return tag, tx.Commit(ctx)
}

// Query runs a guarded query. The returned rows hold the transaction open;
// Close commits it, so callers must close the rows as usual.
func (e *Enforcer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	tx, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return &txRows{Rows: rows, ctx: ctx, tx: tx}, nil
}

// QueryRow runs a guarded single-row query. The transaction begins and ends
// inside Scan.
func (e *Enforcer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &txRow{e: e, ctx: ctx, sql: sql, args: args}
}

// txRows commits the wrapping transaction when the row stream is closed.
type txRows struct {
	pgx.Rows
	ctx  context.Context
	tx   pgx.Tx
	done bool
}

func (r *txRows) Close() {
	r.Rows.Close()
	if r.done {
		return
	}
	r.done = true
	if r.Rows.Err() != nil {
		_ = r.tx.Rollback(r.ctx)
		return
	}
	_ = r.tx.Commit(r.ctx)
}

// txRow defers the whole transaction until Scan so QueryRow keeps the pgx
// call shape.
type txRow struct {
	e    *Enforcer
	ctx  context.Context
	sql  string
	args []any
}

func (r *txRow) Scan(dest ...any) error {
	tx, err := r.e.begin(r.ctx)
	if err != nil {
		return err
	}

	if err := tx.QueryRow(r.ctx, r.sql, r.args...).Scan(dest...); err != nil {
		_ = tx.Rollback(r.ctx)
		return err
	}
	return tx.Commit(r.ctx)
}
