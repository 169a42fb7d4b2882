package models

import (
	"time"

	"github.com/google/uuid"
)

// Blacklist reasons
const (
	RevocationReasonLogout  = "user_logout"
	RevocationReasonRefresh = "token_refresh"
)

// BlacklistedToken marks a JWT as revoked before its natural expiry. A row's
// existence is the authority for "this token is no longer valid".
type BlacklistedToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Token     string    `json:"-" db:"token"` // Never return in JSON
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Reason    *string   `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TokenPair is the response shape for login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// LoginResponse is a TokenPair plus the authenticated user's summary.
type LoginResponse struct {
	TokenPair
	User *UserSummary `json:"user"`
}
