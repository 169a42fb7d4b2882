// Package tenantctx binds the current tenant to a request-scoped
// context.Context. Each in-flight request carries its own binding, so
// concurrent requests can never observe each other's tenant.
package tenantctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	tenantKey ctxKey = iota
	bypassKey
)

// WithTenant returns a child context bound to tenantID. The binding lives and
// dies with the request context; there is no process-wide slot to clear.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantID returns the tenant bound to ctx, if any.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	return id, ok
}

// WithBypass marks ctx as a privileged administrative scope. Guarded queries
// executed under it skip tenant filtering and set app.bypass_rls instead.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey, true)
}

// Bypassed reports whether ctx carries the administrative bypass mark.
func Bypassed(ctx context.Context) bool {
	b, _ := ctx.Value(bypassKey).(bool)
	return b
}
