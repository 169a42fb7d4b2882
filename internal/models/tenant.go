package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant classification values
const (
	TenantTypeSchool   = "SCHOOL"
	TenantTypeDistrict = "DISTRICT"
	TenantTypeTrust    = "TRUST"
	TenantTypeOther    = "OTHER"
)

type Tenant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Type         string    `json:"type" db:"type"`
	Subdomain    string    `json:"subdomain" db:"subdomain"`
	Description  *string   `json:"description" db:"description"`
	Website      *string   `json:"website" db:"website"`
	LogoURL      *string   `json:"logo_url" db:"logo_url"`
	ContactEmail *string   `json:"contact_email" db:"contact_email"`
	ContactPhone *string   `json:"contact_phone" db:"contact_phone"`
	CreatedBy    uuid.UUID `json:"created_by" db:"created_by"`
	UpdatedBy    uuid.UUID `json:"updated_by" db:"updated_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ValidTenantType reports whether t is a supported tenant classification.
func ValidTenantType(t string) bool {
	switch t {
	case TenantTypeSchool, TenantTypeDistrict, TenantTypeTrust, TenantTypeOther:
		return true
	}
	return false
}
