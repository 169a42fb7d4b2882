package repositories

import (
	"context"
	"time"

	"scopehub/internal/models"

	"github.com/google/uuid"
)

// TokenRepository persists revoked JWTs. A stored token is rejected on every
// authenticated request until its natural expiry passes and it is purged.
type TokenRepository interface {
	Blacklist(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time, reason *string) (*models.BlacklistedToken, error)
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
	Remove(ctx context.Context, token string) error
}

type tokenRepo struct {
	db DBTX
}

func NewTokenRepo(db DBTX) TokenRepository {
	return &tokenRepo{db: db}
}

// Blacklist inserts a revocation record. Re-blacklisting the same token is
// treated as already-blacklisted, not an error.
func (r *tokenRepo) Blacklist(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time, reason *string) (*models.BlacklistedToken, error) {
	record := &models.BlacklistedToken{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		Reason:    reason,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO blacklisted_tokens (id, token, user_id, expires_at, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (token) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.Token, record.UserID, record.ExpiresAt, record.Reason)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokenRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token = $1)`
	err := r.db.QueryRow(ctx, query, token).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// PurgeExpired deletes records whose expiry is strictly in the past and
// returns the number removed.
func (r *tokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM blacklisted_tokens WHERE expires_at < NOW()`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *tokenRepo) Remove(ctx context.Context, token string) error {
	query := `DELETE FROM blacklisted_tokens WHERE token = $1`
	_, err := r.db.Exec(ctx, query, token)
	return err
}
