package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scopehub/internal/common"
	"scopehub/internal/repositories"
	"scopehub/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RawTokenKey stores the presented bearer token on the echo context so the
// logout handler can blacklist the exact string.
const RawTokenKey = "raw_token"

// AuthMiddleware validates the bearer JWT on every protected request: the
// signature and expiry through the auth service, blacklist membership through
// the token store, and user existence through the user repository. Any check
// failing rejects the request; a store failure fails closed.
func AuthMiddleware(authService services.AuthService, userRepo repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return common.SendError(c, http.StatusUnauthorized, common.CodeUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return common.SendError(c, http.StatusUnauthorized, common.CodeUnauthorized, "Invalid token format")
			}

			claims, err := authService.VerifyAccessToken(c.Request().Context(), tokenString)
			if err != nil {
				if errors.Is(err, services.ErrTokenRevoked) {
					return common.SendError(c, http.StatusUnauthorized, common.CodeTokenRevoked, "Token has been revoked")
				}
				if errors.Is(err, services.ErrInvalidCredentials) {
					return common.SendError(c, http.StatusUnauthorized, common.CodeUnauthorized, "Invalid token")
				}
				return common.SendServerError(c, "Could not verify token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return common.SendError(c, http.StatusUnauthorized, common.CodeUnauthorized, "Invalid subject in token")
			}

			user, err := userRepo.GetByID(c.Request().Context(), userID)
			if err != nil || user == nil || !user.IsActive {
				return common.SendError(c, http.StatusUnauthorized, common.CodeUnauthorized, "User not found")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.SuperuserKey, user.IsSuperuser)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(RawTokenKey, tokenString)

			return next(c)
		}
	}
}
