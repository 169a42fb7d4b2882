package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TenantUserRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     TenantUserRepository
	userID   uuid.UUID
	tenantID uuid.UUID
	context  context.Context
}

func (suite *TenantUserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewTenantUserRepo(mock)
	suite.userID = uuid.New()
	suite.tenantID = uuid.New()
	suite.context = context.Background()
}

func (suite *TenantUserRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestTenantUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TenantUserRepoTestSuite))
}

func (suite *TenantUserRepoTestSuite) TestHasActiveMembership_ActiveMember() {
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tenant_users WHERE user_id = \$1 AND tenant_id = \$2 AND is_active = true\)`).
		WithArgs(suite.userID, suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	member, err := suite.repo.HasActiveMembership(suite.context, suite.userID, suite.tenantID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), member)
}

func (suite *TenantUserRepoTestSuite) TestHasActiveMembership_NoMembership() {
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tenant_users WHERE user_id = \$1 AND tenant_id = \$2 AND is_active = true\)`).
		WithArgs(suite.userID, suite.tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	member, err := suite.repo.HasActiveMembership(suite.context, suite.userID, suite.tenantID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), member)
}

func (suite *TenantUserRepoTestSuite) TestHasActiveMembership_DatabaseErrorFailsClosed() {
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tenant_users WHERE user_id = \$1 AND tenant_id = \$2 AND is_active = true\)`).
		WithArgs(suite.userID, suite.tenantID).
		WillReturnError(assert.AnError)

	member, err := suite.repo.HasActiveMembership(suite.context, suite.userID, suite.tenantID)
	assert.Error(suite.T(), err)
	assert.False(suite.T(), member)
}

func (suite *TenantUserRepoTestSuite) TestGetMembership_NotFound() {
	suite.mock.ExpectQuery(`
		SELECT id, user_id, tenant_id, role, is_active, created_by, updated_by, created_at, updated_at FROM tenant_users WHERE user_id = \$1 AND tenant_id = \$2
	`).WithArgs(suite.userID, suite.tenantID).
		WillReturnError(pgx.ErrNoRows)

	membership, err := suite.repo.GetMembership(suite.context, suite.userID, suite.tenantID)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), membership)
}

func (suite *TenantUserRepoTestSuite) TestDeactivate_Success() {
	suite.mock.ExpectExec(`UPDATE tenant_users SET is_active = false, updated_at = NOW\(\) WHERE user_id = \$1 AND tenant_id = \$2`).
		WithArgs(suite.userID, suite.tenantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Deactivate(suite.context, suite.userID, suite.tenantID)
	assert.NoError(suite.T(), err)
}
