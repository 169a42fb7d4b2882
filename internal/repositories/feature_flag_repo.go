package repositories

import (
	"context"

	"scopehub/internal/models"
	"scopehub/internal/rls"
	"scopehub/internal/tenantctx"

	"github.com/google/uuid"
)

// FeatureFlagRepository is tenant-scoped: every statement carries an explicit
// tenant predicate taken from the bound context, and executes through the rls
// enforcer so the storage-layer policy re-validates it.
type FeatureFlagRepository interface {
	Create(ctx context.Context, flag *models.FeatureFlag) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FeatureFlag, error)
	GetByKey(ctx context.Context, key string) (*models.FeatureFlag, error)
	Update(ctx context.Context, flag *models.FeatureFlag) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.FeatureFlag, error)
}

type featureFlagRepo struct {
	db rls.DB
}

func NewFeatureFlagRepo(db rls.DB) FeatureFlagRepository {
	return &featureFlagRepo{db: db}
}

const featureFlagColumns = `id, tenant_id, key, enabled, description, created_at, updated_at`

func scanFeatureFlag(row interface{ Scan(dest ...any) error }) (*models.FeatureFlag, error) {
	flag := &models.FeatureFlag{}
	err := row.Scan(&flag.ID, &flag.TenantID, &flag.Key, &flag.Enabled, &flag.Description, &flag.CreatedAt, &flag.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return flag, nil
}

// Create stamps the bound tenant onto the new row regardless of what the
// caller put in flag.TenantID.
func (r *featureFlagRepo) Create(ctx context.Context, flag *models.FeatureFlag) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return rls.ErrMissingTenantContext
	}
	flag.TenantID = tenantID

	query := `
		INSERT INTO feature_flags (id, tenant_id, key, enabled, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, flag.ID, flag.TenantID, flag.Key, flag.Enabled, flag.Description)
	return err
}

func (r *featureFlagRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.FeatureFlag, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, rls.ErrMissingTenantContext
	}
	query := `SELECT ` + featureFlagColumns + ` FROM feature_flags WHERE tenant_id = $1 AND id = $2`
	return scanFeatureFlag(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *featureFlagRepo) GetByKey(ctx context.Context, key string) (*models.FeatureFlag, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, rls.ErrMissingTenantContext
	}
	query := `SELECT ` + featureFlagColumns + ` FROM feature_flags WHERE tenant_id = $1 AND key = $2`
	return scanFeatureFlag(r.db.QueryRow(ctx, query, tenantID, key))
}

func (r *featureFlagRepo) Update(ctx context.Context, flag *models.FeatureFlag) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return rls.ErrMissingTenantContext
	}
	query := `
		UPDATE feature_flags
		SET enabled = $1, description = $2, updated_at = NOW()
		WHERE tenant_id = $3 AND id = $4
	`
	_, err := r.db.Exec(ctx, query, flag.Enabled, flag.Description, tenantID, flag.ID)
	return err
}

func (r *featureFlagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return rls.ErrMissingTenantContext
	}
	query := `DELETE FROM feature_flags WHERE tenant_id = $1 AND id = $2`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return err
}

func (r *featureFlagRepo) List(ctx context.Context, limit, offset int) ([]*models.FeatureFlag, error) {
	tenantID, ok := tenantctx.TenantID(ctx)
	if !ok {
		return nil, rls.ErrMissingTenantContext
	}
	query := `SELECT ` + featureFlagColumns + ` FROM feature_flags WHERE tenant_id = $1 ORDER BY key LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []*models.FeatureFlag
	for rows.Next() {
		flag, err := scanFeatureFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}
