package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles within a tenant
const (
	RoleAdmin   = "ADMIN"
	RoleOwner   = "OWNER"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
	RoleParent  = "PARENT"
	RoleStaff   = "STAFF"
)

// TenantUser links a user to a tenant. The (user_id, tenant_id) pair is unique
// and is the sole authority for tenant membership.
type TenantUser struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Role      string    `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	UpdatedBy uuid.UUID `json:"updated_by" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ValidMembershipRole reports whether r is a supported membership role.
func ValidMembershipRole(r string) bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTeacher, RoleStudent, RoleParent, RoleStaff:
		return true
	}
	return false
}
