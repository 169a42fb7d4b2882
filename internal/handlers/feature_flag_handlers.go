package handlers

import (
	"errors"
	"net/http"

	"scopehub/internal/common"
	"scopehub/internal/models"
	"scopehub/internal/repositories"
	"scopehub/internal/rls"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// FeatureFlagHandlers serves the tenant-scoped feature flag endpoints. All
// data access runs through the guarded repository; the tenant comes from the
// bound request context, never from the payload.
type FeatureFlagHandlers struct {
	flagRepo repositories.FeatureFlagRepository
}

func NewFeatureFlagHandlers(flagRepo repositories.FeatureFlagRepository) *FeatureFlagHandlers {
	return &FeatureFlagHandlers{flagRepo: flagRepo}
}

// sendFlagError maps repository failures. A missing tenant binding here means
// a guarded call site executed before the middleware bound the tenant; it is
// surfaced distinctly because it signals the isolation chain was nearly broken.
func sendFlagError(c echo.Context, err error, fallback string) error {
	if errors.Is(err, rls.ErrMissingTenantContext) {
		return common.SendError(c, http.StatusInternalServerError, common.CodeMissingTenantContext, "No tenant context bound for guarded operation")
	}
	return common.SendServerError(c, fallback)
}

// ListFlags lists the current tenant's feature flags.
func (h *FeatureFlagHandlers) ListFlags(c echo.Context) error {
	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	flags, err := h.flagRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		return sendFlagError(c, err, "Failed to list feature flags")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]interface{}{
		"feature_flags": flags,
		"limit":         limit,
		"offset":        offset,
	})
}

// CreateFlagRequest represents the feature flag creation payload.
type CreateFlagRequest struct {
	Key         string  `json:"key" validate:"required"`
	Enabled     bool    `json:"enabled"`
	Description *string `json:"description"`
}

// CreateFlag creates a feature flag for the current tenant.
func (h *FeatureFlagHandlers) CreateFlag(c echo.Context) error {
	var req CreateFlagRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Key, "key"); err != nil {
		return common.SendValidationError(c, "key", err.Error())
	}

	if existing, err := h.flagRepo.GetByKey(c.Request().Context(), req.Key); err == nil && existing != nil {
		return common.SendError(c, http.StatusConflict, common.CodeConflict, "Feature flag key already exists for this tenant")
	}

	flag := &models.FeatureFlag{
		ID:          uuid.New(),
		Key:         req.Key,
		Enabled:     req.Enabled,
		Description: req.Description,
	}
	if err := h.flagRepo.Create(c.Request().Context(), flag); err != nil {
		// Concurrent creates can both pass the GetByKey check; the
		// (tenant_id, key) unique index decides the winner.
		if repositories.IsUniqueViolation(err) {
			return common.SendError(c, http.StatusConflict, common.CodeConflict, "Feature flag key already exists for this tenant")
		}
		return sendFlagError(c, err, "Failed to create feature flag")
	}

	return common.SendSuccess(c, http.StatusCreated, flag)
}

// GetFlag returns a feature flag by ID within the current tenant.
func (h *FeatureFlagHandlers) GetFlag(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "feature flag ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	flag, err := h.flagRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "Feature flag")
		}
		return sendFlagError(c, err, "Failed to load feature flag")
	}

	return common.SendSuccess(c, http.StatusOK, flag)
}

// UpdateFlagRequest represents the feature flag update payload.
type UpdateFlagRequest struct {
	Enabled     *bool   `json:"enabled"`
	Description *string `json:"description"`
}

// UpdateFlag toggles or describes a feature flag within the current tenant.
func (h *FeatureFlagHandlers) UpdateFlag(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "feature flag ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateFlagRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	flag, err := h.flagRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "Feature flag")
		}
		return sendFlagError(c, err, "Failed to load feature flag")
	}

	if req.Enabled != nil {
		flag.Enabled = *req.Enabled
	}
	if req.Description != nil {
		flag.Description = req.Description
	}

	if err := h.flagRepo.Update(c.Request().Context(), flag); err != nil {
		return sendFlagError(c, err, "Failed to update feature flag")
	}

	return common.SendSuccess(c, http.StatusOK, flag)
}

// DeleteFlag removes a feature flag within the current tenant.
func (h *FeatureFlagHandlers) DeleteFlag(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "feature flag ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.flagRepo.Delete(c.Request().Context(), id); err != nil {
		return sendFlagError(c, err, "Failed to delete feature flag")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{"message": "Feature flag deleted"})
}
