package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"scopehub/internal/common"
	"scopehub/internal/models"
	"scopehub/internal/repositories"
	"scopehub/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const logoBucket = "tenant-logos"

// TenantHandlers handles tenant and membership HTTP requests.
type TenantHandlers struct {
	tenantSvc      services.TenantService
	tenantUserRepo repositories.TenantUserRepository
	storageSvc     services.StorageService
}

func NewTenantHandlers(tenantSvc services.TenantService, tenantUserRepo repositories.TenantUserRepository, storageSvc services.StorageService) *TenantHandlers {
	return &TenantHandlers{
		tenantSvc:      tenantSvc,
		tenantUserRepo: tenantUserRepo,
		storageSvc:     storageSvc,
	}
}

// ListTenantsRequest represents query parameters for listing tenants.
type ListTenantsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListTenants returns tenants, paginated.
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	tenants, err := h.tenantSvc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list tenants")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

// CreateTenantRequest represents the tenant creation payload.
type CreateTenantRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Subdomain    string  `json:"subdomain" validate:"required"`
	Description  *string `json:"description"`
	Website      *string `json:"website"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

// CreateTenant creates a tenant and makes the caller its OWNER.
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	if req.Name == "" || req.Subdomain == "" {
		return common.SendValidationError(c, "name", "Name and subdomain are required")
	}
	if len(req.Subdomain) < 3 {
		return common.SendValidationError(c, "subdomain", "Subdomain must be at least 3 characters long")
	}
	if !models.ValidTenantType(req.Type) {
		return common.SendValidationError(c, "type", "Type must be one of: SCHOOL, DISTRICT, TRUST, OTHER")
	}

	tenant, err := h.tenantSvc.Create(ctx, &services.CreateTenantRequest{
		Name:         req.Name,
		Type:         req.Type,
		Subdomain:    req.Subdomain,
		Description:  req.Description,
		Website:      req.Website,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		CreatedBy:    userID,
	})
	if err != nil {
		return common.SendServerError(c, "Failed to create tenant")
	}

	membership := &models.TenantUser{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  tenant.ID,
		Role:      models.RoleOwner,
		IsActive:  true,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	if err := h.tenantUserRepo.Create(ctx, membership); err != nil {
		return common.SendServerError(c, "Failed to create owner membership")
	}

	return common.SendSuccess(c, http.StatusCreated, tenant)
}

// GetTenant returns tenant details by ID.
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	tenant, err := h.tenantSvc.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to load tenant")
	}

	return common.SendSuccess(c, http.StatusOK, tenant)
}

// UpdateTenantRequest represents the tenant update payload.
type UpdateTenantRequest struct {
	Name         string  `json:"name" validate:"required"`
	Type         string  `json:"type" validate:"required"`
	Description  *string `json:"description"`
	Website      *string `json:"website"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

// UpdateTenant updates mutable tenant fields. The tenant ID itself is immutable.
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}
	if !models.ValidTenantType(req.Type) {
		return common.SendValidationError(c, "type", "Type must be one of: SCHOOL, DISTRICT, TRUST, OTHER")
	}

	tenant, err := h.tenantSvc.Update(ctx, &services.UpdateTenantRequest{
		ID:           id,
		Name:         req.Name,
		Type:         req.Type,
		Description:  req.Description,
		Website:      req.Website,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		UpdatedBy:    userID,
	})
	if err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to update tenant")
	}

	return common.SendSuccess(c, http.StatusOK, tenant)
}

// DeleteTenant removes a tenant.
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.tenantSvc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to delete tenant")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{"message": "Tenant deleted"})
}

// ListMembers lists a tenant's memberships.
func (h *TenantHandlers) ListMembers(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	members, err := h.tenantUserRepo.ListByTenant(c.Request().Context(), id, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list members")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]interface{}{
		"members": members,
		"limit":   limit,
		"offset":  offset,
	})
}

// AddMemberRequest represents the membership creation payload.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// AddMember adds a user to a tenant with a role.
func (h *TenantHandlers) AddMember(c echo.Context) error {
	ctx := c.Request().Context()

	callerID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	userID, err := common.ValidateUUID(req.UserID, "user ID")
	if err != nil {
		return common.SendValidationError(c, "user_id", err.Error())
	}
	if !models.ValidMembershipRole(req.Role) {
		return common.SendValidationError(c, "role", "Role must be one of: ADMIN, OWNER, TEACHER, STUDENT, PARENT, STAFF")
	}

	// (user_id, tenant_id) is unique; a second add is a conflict.
	if existing, err := h.tenantUserRepo.GetMembership(ctx, userID, tenantID); err == nil && existing != nil {
		return common.SendError(c, http.StatusConflict, common.CodeConflict, "User is already a member of this tenant")
	}

	membership := &models.TenantUser{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  tenantID,
		Role:      req.Role,
		IsActive:  true,
		CreatedBy: callerID,
		UpdatedBy: callerID,
	}
	if err := h.tenantUserRepo.Create(ctx, membership); err != nil {
		if repositories.IsUniqueViolation(err) {
			return common.SendError(c, http.StatusConflict, common.CodeConflict, "User is already a member of this tenant")
		}
		return common.SendServerError(c, "Failed to add member")
	}

	return common.SendSuccess(c, http.StatusCreated, membership)
}

// RemoveMember removes a user's membership in a tenant.
func (h *TenantHandlers) RemoveMember(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	userID, err := common.ValidateUUID(c.Param("userId"), "user ID")
	if err != nil {
		return common.SendValidationError(c, "userId", err.Error())
	}

	if err := h.tenantUserRepo.Delete(c.Request().Context(), userID, tenantID); err != nil {
		return common.SendServerError(c, "Failed to remove member")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{"message": "Member removed"})
}

// UploadLogo streams a logo image to object storage and records its URL.
func (h *TenantHandlers) UploadLogo(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tenantID, err := common.ValidateUUID(c.Param("id"), "tenant ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return common.SendValidationError(c, "logo", "Logo file is required")
	}

	src, err := file.Open()
	if err != nil {
		return common.SendServerError(c, "Failed to read upload")
	}
	defer src.Close()

	if err := h.storageSvc.EnsureBucketExists(ctx, logoBucket); err != nil {
		return common.SendServerError(c, "Storage unavailable")
	}

	objectName := fmt.Sprintf("%s/logo", tenantID.String())
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.storageSvc.UploadObject(ctx, logoBucket, objectName, contentType, src, file.Size); err != nil {
		return common.SendServerError(c, "Failed to store logo")
	}

	url, err := h.storageSvc.GetPresignedURL(ctx, logoBucket, objectName, 7*24*time.Hour)
	if err != nil {
		return common.SendServerError(c, "Failed to generate logo URL")
	}

	if err := h.tenantSvc.SetLogoURL(ctx, tenantID, url, userID); err != nil {
		if errors.Is(err, services.ErrTenantNotFound) {
			return common.SendNotFoundError(c, "Tenant")
		}
		return common.SendServerError(c, "Failed to save logo URL")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{"logo_url": url})
}
