package common

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	SuperuserKey contextKey = "is_superuser"
)

// GetUserIDFromContext extracts the authenticated user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// IsSuperuserFromContext reports whether the authenticated user is a global admin.
func IsSuperuserFromContext(ctx context.Context) bool {
	super, _ := ctx.Value(SuperuserKey).(bool)
	return super
}
