package rls

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// GuardedTables lists every tenant-scoped table carrying a storage-layer
// policy. Tables defining tenancy itself (tenants, tenant_users, users,
// blacklisted_tokens) are deliberately absent.
var GuardedTables = []string{
	"feature_flags",
}

// Setup enables row security and installs the tenant isolation policy on each
// guarded table. The policy denies by default: an unset app.current_tenant_id
// yields NULL, which admits no rows.
func Setup(ctx context.Context, db DBExecutor, tables []string) error {
	for _, table := range tables {
		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table),
			fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, table),
			fmt.Sprintf(`DROP POLICY IF EXISTS %s_tenant_isolation ON %s`, table, table),
			fmt.Sprintf(`CREATE POLICY %s_tenant_isolation ON %s
				USING (
					(current_setting('app.bypass_rls', true) = 'true') OR
					(tenant_id::text = current_setting('app.current_tenant_id', true))
				)`, table, table),
		}
		for _, stmt := range stmts {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply row security on %s: %w", table, err)
			}
		}
	}
	return nil
}

// DBExecutor is the minimal surface Setup needs; *pgxpool.Pool satisfies it.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
