package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"scopehub/internal/models"
	"scopehub/internal/rls"
	"scopehub/internal/tenantctx"
)

type FeatureFlagRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      FeatureFlagRepository
	tenantID1 uuid.UUID
	tenantID2 uuid.UUID
	flagID    uuid.UUID
	ctx1      context.Context
	ctx2      context.Context
}

func (suite *FeatureFlagRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewFeatureFlagRepo(mock)
	suite.tenantID1 = uuid.New()
	suite.tenantID2 = uuid.New()
	suite.flagID = uuid.New()
	suite.ctx1 = tenantctx.WithTenant(context.Background(), suite.tenantID1)
	suite.ctx2 = tenantctx.WithTenant(context.Background(), suite.tenantID2)
}

func (suite *FeatureFlagRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestFeatureFlagRepoTestSuite(t *testing.T) {
	suite.Run(t, new(FeatureFlagRepoTestSuite))
}

func (suite *FeatureFlagRepoTestSuite) TestCreate_StampsBoundTenant() {
	flag := &models.FeatureFlag{
		ID:       uuid.New(),
		TenantID: suite.tenantID2, // caller-supplied value must be overridden
		Key:      "dark-mode",
		Enabled:  true,
	}

	suite.mock.ExpectExec(`
		INSERT INTO feature_flags \(id, tenant_id, key, enabled, description, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, NOW\(\), NOW\(\)\)
	`).WithArgs(flag.ID, suite.tenantID1, flag.Key, flag.Enabled, flag.Description).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.ctx1, flag)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.tenantID1, flag.TenantID)
}

func (suite *FeatureFlagRepoTestSuite) TestCreate_NoTenantBound() {
	flag := &models.FeatureFlag{ID: uuid.New(), Key: "dark-mode"}

	err := suite.repo.Create(context.Background(), flag)
	assert.ErrorIs(suite.T(), err, rls.ErrMissingTenantContext)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet()) // query never ran
}

func (suite *FeatureFlagRepoTestSuite) TestGetByID_ScopedToTenant() {
	suite.mock.ExpectQuery(`
		SELECT id, tenant_id, key, enabled, description, created_at, updated_at FROM feature_flags WHERE tenant_id = \$1 AND id = \$2
	`).WithArgs(suite.tenantID1, suite.flagID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "key", "enabled", "description", "created_at", "updated_at"}).
			AddRow(suite.flagID, suite.tenantID1, "beta-reports", false, nil, time.Now(), time.Now()))

	flag, err := suite.repo.GetByID(suite.ctx1, suite.flagID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "beta-reports", flag.Key)
	assert.Equal(suite.T(), suite.tenantID1, flag.TenantID)
}

func (suite *FeatureFlagRepoTestSuite) TestGetByID_OtherTenantRowInvisible() {
	// The row belongs to tenant 1; a lookup under tenant 2 scans nothing.
	suite.mock.ExpectQuery(`
		SELECT id, tenant_id, key, enabled, description, created_at, updated_at FROM feature_flags WHERE tenant_id = \$1 AND id = \$2
	`).WithArgs(suite.tenantID2, suite.flagID).
		WillReturnError(pgx.ErrNoRows)

	flag, err := suite.repo.GetByID(suite.ctx2, suite.flagID)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), flag)
}

func (suite *FeatureFlagRepoTestSuite) TestGetByKey_Success() {
	suite.mock.ExpectQuery(`
		SELECT id, tenant_id, key, enabled, description, created_at, updated_at FROM feature_flags WHERE tenant_id = \$1 AND key = \$2
	`).WithArgs(suite.tenantID1, "dark-mode").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "key", "enabled", "description", "created_at", "updated_at"}).
			AddRow(suite.flagID, suite.tenantID1, "dark-mode", true, nil, time.Now(), time.Now()))

	flag, err := suite.repo.GetByKey(suite.ctx1, "dark-mode")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), flag.Enabled)
}

func (suite *FeatureFlagRepoTestSuite) TestUpdate_ScopedToTenant() {
	flag := &models.FeatureFlag{ID: suite.flagID, Key: "dark-mode", Enabled: false}

	suite.mock.ExpectExec(`
		UPDATE feature_flags
		SET enabled = \$1, description = \$2, updated_at = NOW\(\)
		WHERE tenant_id = \$3 AND id = \$4
	`).WithArgs(flag.Enabled, flag.Description, suite.tenantID1, flag.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Update(suite.ctx1, flag)
	assert.NoError(suite.T(), err)
}

func (suite *FeatureFlagRepoTestSuite) TestDelete_NoTenantBound() {
	err := suite.repo.Delete(context.Background(), suite.flagID)
	assert.ErrorIs(suite.T(), err, rls.ErrMissingTenantContext)
}

func (suite *FeatureFlagRepoTestSuite) TestList_ReturnsOnlyTenantRows() {
	rows := pgxmock.NewRows([]string{"id", "tenant_id", "key", "enabled", "description", "created_at", "updated_at"}).
		AddRow(uuid.New(), suite.tenantID1, "beta-reports", false, nil, time.Now(), time.Now()).
		AddRow(uuid.New(), suite.tenantID1, "dark-mode", true, nil, time.Now(), time.Now())

	suite.mock.ExpectQuery(`
		SELECT id, tenant_id, key, enabled, description, created_at, updated_at FROM feature_flags WHERE tenant_id = \$1 ORDER BY key LIMIT \$2 OFFSET \$3
	`).WithArgs(suite.tenantID1, 50, 0).
		WillReturnRows(rows)

	flags, err := suite.repo.List(suite.ctx1, 50, 0)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), flags, 2)
	for _, flag := range flags {
		assert.Equal(suite.T(), suite.tenantID1, flag.TenantID)
	}
}

func (suite *FeatureFlagRepoTestSuite) TestList_NoTenantBound() {
	flags, err := suite.repo.List(context.Background(), 50, 0)
	assert.ErrorIs(suite.T(), err, rls.ErrMissingTenantContext)
	assert.Nil(suite.T(), flags)
}
