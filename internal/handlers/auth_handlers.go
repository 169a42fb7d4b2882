package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"scopehub/internal/caching"
	"scopehub/internal/common"
	"scopehub/internal/middleware"
	"scopehub/internal/models"
	"scopehub/internal/repositories"
	"scopehub/internal/services"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// Login attempt limits per email+IP.
const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

// AuthHandlers handles authentication-related HTTP requests.
type AuthHandlers struct {
	authService    services.AuthService
	userRepo       repositories.UserRepository
	tenantUserRepo repositories.TenantUserRepository
	cacheSvc       caching.CacheService
}

func NewAuthHandlers(authService services.AuthService, userRepo repositories.UserRepository, tenantUserRepo repositories.TenantUserRepository, cacheSvc caching.CacheService) *AuthHandlers {
	return &AuthHandlers{
		authService:    authService,
		userRepo:       userRepo,
		tenantUserRepo: tenantUserRepo,
		cacheSvc:       cacheSvc,
	}
}

// LoginRequest represents the login request payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login handles user login with email and password.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "email", "Email and password are required")
	}

	rateKey := fmt.Sprintf("login:%s:%s", req.Email, c.RealIP())
	if limited, err := h.cacheSvc.IsRateLimited(ctx, rateKey, loginAttemptLimit, loginAttemptWindow); err == nil && limited {
		return common.SendError(c, http.StatusTooManyRequests, common.CodeRateLimited, "Too many login attempts, try again later")
	}

	resp, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			_ = h.cacheSvc.IncrementRateLimit(ctx, rateKey, loginAttemptWindow)
			return common.SendError(c, http.StatusUnauthorized, common.CodeInvalidCredentials, "Invalid email or password")
		}
		return common.SendServerError(c, "Failed to log in")
	}

	return c.JSON(http.StatusOK, resp)
}

// SignupRequest represents the signup request payload.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// Signup handles user registration.
func (h *AuthHandlers) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	if err := common.ValidateEmail(req.Email); err != nil {
		return common.SendValidationError(c, "email", err.Error())
	}
	if len(req.Password) < 6 {
		return common.SendValidationError(c, "password", "Password must be at least 6 characters")
	}
	if req.FirstName == "" || req.LastName == "" {
		return common.SendValidationError(c, "name", "First name and last name are required")
	}

	if existing, err := h.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return common.SendError(c, http.StatusConflict, common.CodeConflict, "User already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return common.SendServerError(c, "Failed to hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		// Two signups can race past the GetByEmail check; the unique
		// index on email decides the winner.
		if repositories.IsUniqueViolation(err) {
			return common.SendError(c, http.StatusConflict, common.CodeConflict, "User already exists")
		}
		return common.SendServerError(c, "Failed to create user")
	}

	resp, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return common.SendServerError(c, "Failed to generate tokens")
	}

	return c.JSON(http.StatusCreated, resp)
}

// Logout handles user logout by blacklisting the presented token.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	tokenString, _ := c.Get(middleware.RawTokenKey).(string)
	if tokenString == "" {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Authorization header missing")
	}

	if err := h.authService.Logout(ctx, tokenString, userID); err != nil {
		return common.SendServerError(c, "Failed to revoke token")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// RefreshRequest represents the token refresh request payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh consumes a refresh token and rotates the pair.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, common.CodeValidationError, "Invalid request format")
	}

	if req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token", "Refresh token is required")
	}

	pair, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			return common.SendError(c, http.StatusUnauthorized, common.CodeInvalidRefreshToken, "Invalid or expired refresh token")
		}
		return common.SendServerError(c, "Failed to refresh tokens")
	}

	return c.JSON(http.StatusOK, pair)
}

// Me returns the current user's profile and tenant memberships.
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "User")
		}
		return common.SendServerError(c, "Failed to load user")
	}

	memberships, err := h.tenantUserRepo.ListByUser(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to load memberships")
	}

	return common.SendSuccess(c, http.StatusOK, map[string]interface{}{
		"user":        user,
		"memberships": memberships,
	})
}
