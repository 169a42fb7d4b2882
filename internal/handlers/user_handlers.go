package handlers

import (
	"errors"
	"net/http"

	"scopehub/internal/common"
	"scopehub/internal/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// UserHandlers handles user management HTTP requests.
type UserHandlers struct {
	userRepo repositories.UserRepository
}

func NewUserHandlers(userRepo repositories.UserRepository) *UserHandlers {
	return &UserHandlers{userRepo: userRepo}
}

// ListUsersRequest represents query parameters for listing users.
type ListUsersRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListUsers returns users, paginated. Superusers only.
func (h *UserHandlers) ListUsers(c echo.Context) error {
	if !common.IsSuperuserFromContext(c.Request().Context()) {
		return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "Superuser access required")
	}

	var req ListUsersRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid query parameters")
	}
	limit, offset := common.ValidatePaginationParams(req.Limit, req.Offset)

	users, err := h.userRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list users")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]interface{}{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

// GetUser returns a user by ID.
func (h *UserHandlers) GetUser(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "user ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "User")
		}
		return common.SendServerError(c, "Failed to load user")
	}

	return common.SendSuccess(c, http.StatusOK, user)
}

// UpdateUserRequest represents the user update payload.
type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  *bool  `json:"is_active"`
}

// UpdateUser updates a user's profile. Users may update themselves;
// superusers may update anyone.
func (h *UserHandlers) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	callerID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	id, err := common.ValidateUUID(c.Param("id"), "user ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if id != callerID && !common.IsSuperuserFromContext(ctx) {
		return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "Cannot update another user")
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "User")
		}
		return common.SendServerError(c, "Failed to load user")
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.IsActive != nil {
		if !common.IsSuperuserFromContext(ctx) {
			return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "Only superusers can change active status")
		}
		user.IsActive = *req.IsActive
	}

	if err := h.userRepo.Update(ctx, user); err != nil {
		return common.SendServerError(c, "Failed to update user")
	}

	return common.SendSuccess(c, http.StatusOK, user)
}

// DeleteUser removes a user. Superusers only.
func (h *UserHandlers) DeleteUser(c echo.Context) error {
	if !common.IsSuperuserFromContext(c.Request().Context()) {
		return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "Superuser access required")
	}

	id, err := common.ValidateUUID(c.Param("id"), "user ID")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if err := h.userRepo.Delete(c.Request().Context(), id); err != nil {
		return common.SendServerError(c, "Failed to delete user")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{"message": "User deleted"})
}
