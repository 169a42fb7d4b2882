package repositories

import (
	"context"

	"scopehub/internal/models"

	"github.com/google/uuid"
)

// TenantUserRepository manages tenant memberships. HasActiveMembership is the
// single authority consulted by the tenant access middleware.
type TenantUserRepository interface {
	Create(ctx context.Context, membership *models.TenantUser) error
	HasActiveMembership(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)
	GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.TenantUser, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.TenantUser, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantUser, error)
	Deactivate(ctx context.Context, userID, tenantID uuid.UUID) error
	Delete(ctx context.Context, userID, tenantID uuid.UUID) error
}

type tenantUserRepo struct {
	db DBTX
}

func NewTenantUserRepo(db DBTX) TenantUserRepository {
	return &tenantUserRepo{db: db}
}

const tenantUserColumns = `id, user_id, tenant_id, role, is_active, created_by, updated_by, created_at, updated_at`

func scanTenantUser(row interface{ Scan(dest ...any) error }) (*models.TenantUser, error) {
	m := &models.TenantUser{}
	err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.IsActive, &m.CreatedBy, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *tenantUserRepo) Create(ctx context.Context, membership *models.TenantUser) error {
	query := `
		INSERT INTO tenant_users (id, user_id, tenant_id, role, is_active, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, membership.ID, membership.UserID, membership.TenantID, membership.Role, membership.IsActive, membership.CreatedBy, membership.UpdatedBy)
	return err
}

func (r *tenantUserRepo) HasActiveMembership(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tenant_users WHERE user_id = $1 AND tenant_id = $2 AND is_active = true)`
	err := r.db.QueryRow(ctx, query, userID, tenantID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *tenantUserRepo) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.TenantUser, error) {
	query := `SELECT ` + tenantUserColumns + ` FROM tenant_users WHERE user_id = $1 AND tenant_id = $2`
	return scanTenantUser(r.db.QueryRow(ctx, query, userID, tenantID))
}

func (r *tenantUserRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.TenantUser, error) {
	query := `SELECT ` + tenantUserColumns + ` FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.TenantUser
	for rows.Next() {
		m, err := scanTenantUser(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *tenantUserRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantUser, error) {
	query := `SELECT ` + tenantUserColumns + ` FROM tenant_users WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.TenantUser
	for rows.Next() {
		m, err := scanTenantUser(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *tenantUserRepo) Deactivate(ctx context.Context, userID, tenantID uuid.UUID) error {
	query := `UPDATE tenant_users SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND tenant_id = $2`
	_, err := r.db.Exec(ctx, query, userID, tenantID)
	return err
}

func (r *tenantUserRepo) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	query := `DELETE FROM tenant_users WHERE user_id = $1 AND tenant_id = $2`
	_, err := r.db.Exec(ctx, query, userID, tenantID)
	return err
}
