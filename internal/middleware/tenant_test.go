package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"scopehub/internal/common"
	"scopehub/internal/models"
	"scopehub/internal/services"
	"scopehub/internal/tenantctx"
)

type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) Create(ctx context.Context, req *services.CreateTenantRequest) (*models.Tenant, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Update(ctx context.Context, req *services.UpdateTenantRequest) (*models.Tenant, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockTenantService) SetLogoURL(ctx context.Context, id uuid.UUID, logoURL string, updatedBy uuid.UUID) error {
	args := m.Called(ctx, id, logoURL, updatedBy)
	return args.Error(0)
}

type MockTenantUserRepository struct {
	mock.Mock
}

func (m *MockTenantUserRepository) Create(ctx context.Context, membership *models.TenantUser) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockTenantUserRepository) HasActiveMembership(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantUserRepository) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.TenantUser, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantUser), args.Error(1)
}

func (m *MockTenantUserRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.TenantUser, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*models.TenantUser), args.Error(1)
}

func (m *MockTenantUserRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantUser, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.TenantUser), args.Error(1)
}

func (m *MockTenantUserRepository) Deactivate(ctx context.Context, userID, tenantID uuid.UUID) error {
	args := m.Called(ctx, userID, tenantID)
	return args.Error(0)
}

func (m *MockTenantUserRepository) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	args := m.Called(ctx, userID, tenantID)
	return args.Error(0)
}

type TenantMiddlewareTestSuite struct {
	suite.Suite
	mockTenants *MockTenantService
	mockMembers *MockTenantUserRepository
	mw          *TenantMiddleware
	echo        *echo.Echo
	tenant      *models.Tenant
	userID      uuid.UUID
}

func (suite *TenantMiddlewareTestSuite) SetupTest() {
	suite.mockTenants = new(MockTenantService)
	suite.mockMembers = new(MockTenantUserRepository)
	suite.mw = NewTenantMiddleware(suite.mockTenants, suite.mockMembers)
	suite.echo = echo.New()
	suite.userID = uuid.New()
	suite.tenant = &models.Tenant{
		ID:        uuid.New(),
		Name:      "Northside High",
		Type:      models.TenantTypeSchool,
		Subdomain: "northside",
	}
}

func TestTenantMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(TenantMiddlewareTestSuite))
}

// run sends the request through Resolve() into a handler that records the
// tenant the context carries.
func (suite *TenantMiddlewareTestSuite) run(req *http.Request, authenticated, superuser bool) (*httptest.ResponseRecorder, uuid.UUID, bool) {
	if authenticated {
		ctx := context.WithValue(req.Context(), common.UserIDKey, suite.userID)
		ctx = context.WithValue(ctx, common.SuperuserKey, superuser)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	c := suite.echo.NewContext(req, rec)
	c.SetPath(req.URL.Path)

	var boundID uuid.UUID
	var bound bool
	handler := suite.mw.Resolve()(func(c echo.Context) error {
		boundID, bound = tenantctx.TenantID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	assert.NoError(suite.T(), err)
	return rec, boundID, bound
}

func (suite *TenantMiddlewareTestSuite) TestResolve_HeaderID() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, boundID, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.True(suite.T(), bound)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
	assert.Equal(suite.T(), suite.tenant.ID.String(), rec.Header().Get("x-tenant-id"))
	assert.Equal(suite.T(), suite.tenant.Name, rec.Header().Get("x-tenant-name"))
	assert.Equal(suite.T(), suite.tenant.Type, rec.Header().Get("x-tenant-type"))
}

func (suite *TenantMiddlewareTestSuite) TestResolve_HeaderWinsOverQuery() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags?tenantId="+uuid.New().String(), nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, boundID, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
	suite.mockTenants.AssertNumberOfCalls(suite.T(), "GetByID", 1)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_QueryParam() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags?tenantId="+suite.tenant.ID.String(), nil)

	rec, boundID, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_Cookie() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.AddCookie(&http.Cookie{Name: "tenantId", Value: suite.tenant.ID.String()})

	rec, boundID, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_Subdomain() {
	suite.mockTenants.On("GetBySubdomain", mock.Anything, "northside").Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Host = "northside.example.com:8080"

	rec, boundID, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_BareDomainHasNoSubdomain() {
	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Host = "example.com"

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.False(suite.T(), bound)
	assert.Contains(suite.T(), rec.Body.String(), common.CodeMissingTenant)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_MissingTenantAPI() {
	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Host = "localhost"

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.False(suite.T(), bound)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_MissingTenantBrowserRedirects() {
	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Host = "localhost"
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	rec, _, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	assert.Equal(suite.T(), "/select-tenant", rec.Header().Get("Location"))
}

func (suite *TenantMiddlewareTestSuite) TestResolve_UnknownTenant() {
	unknown := uuid.New()
	suite.mockTenants.On("GetByID", mock.Anything, unknown).Return(nil, services.ErrTenantNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", unknown.String())

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
	assert.False(suite.T(), bound)
	assert.Contains(suite.T(), rec.Body.String(), common.CodeTenantNotFound)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_LookupFailureIsServerError() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(nil, errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.False(suite.T(), bound)
	assert.Contains(suite.T(), rec.Body.String(), common.CodeInternalError)
	assert.NotContains(suite.T(), rec.Body.String(), common.CodeTenantNotFound)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_NonMemberForbidden() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusForbidden, rec.Code)
	assert.False(suite.T(), bound)
	assert.Contains(suite.T(), rec.Body.String(), common.CodeForbidden)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_NonMemberBrowserRedirects() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())
	req.Header.Set("Accept", "text/html")

	rec, _, _ := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusFound, rec.Code)
	assert.Equal(suite.T(), "/unauthorized", rec.Header().Get("Location"))
}

func (suite *TenantMiddlewareTestSuite) TestResolve_SuperuserSkipsMembershipCheck() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, boundID, _ := suite.run(req, true, true)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), suite.tenant.ID, boundID)
	suite.mockMembers.AssertNotCalled(suite.T(), "HasActiveMembership", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_UnauthenticatedRejected() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, _, bound := suite.run(req, false, false)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
	assert.False(suite.T(), bound)
}

func (suite *TenantMiddlewareTestSuite) TestResolve_ExemptPathsSkipResolution() {
	for _, path := range []string{"/health", "/v1/auth/login", "/docs/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Host = "localhost"

		rec, _, bound := suite.run(req, false, false)
		assert.Equal(suite.T(), http.StatusOK, rec.Code, path)
		assert.False(suite.T(), bound, path)
	}
}

func (suite *TenantMiddlewareTestSuite) TestResolve_MembershipCheckFailureFailsClosed() {
	suite.mockTenants.On("GetByID", mock.Anything, suite.tenant.ID).Return(suite.tenant, nil)
	suite.mockMembers.On("HasActiveMembership", mock.Anything, suite.userID, suite.tenant.ID).
		Return(false, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/v1/feature-flags", nil)
	req.Header.Set("x-tenant-id", suite.tenant.ID.String())

	rec, _, bound := suite.run(req, true, false)
	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.False(suite.T(), bound)
}

func TestSubdomainFromHost(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"tenant.example.com", "tenant"},
		{"tenant.example.com:8080", "tenant"},
		{"a.b.c.example.com", "a"},
		{"example.com", ""},
		{"localhost", ""},
		{"localhost:8080", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, subdomainFromHost(tc.host), tc.host)
	}
}
