package models

import (
	"time"

	"github.com/google/uuid"
)

// FeatureFlag is a tenant-scoped record. Every read and write goes through the
// row-level isolation enforcer; the key is unique per tenant.
type FeatureFlag struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Key         string    `json:"key" db:"key"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
