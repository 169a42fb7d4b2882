package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"scopehub/internal/common"
	"scopehub/internal/models"
	"scopehub/internal/repositories"
	"scopehub/internal/services"
	"scopehub/internal/tenantctx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// Paths served without a tenant binding.
var exemptPathPrefixes = []string{
	"/health",
	"/v1/auth",
	"/docs",
}

// TenantMiddleware resolves the tenant an operation targets, confirms the
// authenticated principal may act within it, and binds the tenant to the
// request context for the isolation enforcer downstream.
type TenantMiddleware struct {
	tenantSvc      services.TenantService
	tenantUserRepo repositories.TenantUserRepository
}

func NewTenantMiddleware(tenantSvc services.TenantService, tenantUserRepo repositories.TenantUserRepository) *TenantMiddleware {
	return &TenantMiddleware{tenantSvc: tenantSvc, tenantUserRepo: tenantUserRepo}
}

func (m *TenantMiddleware) Resolve() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range exemptPathPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			tenantRef := resolveTenantRef(c)
			if tenantRef == "" {
				if isBrowserRequest(c) {
					return c.Redirect(http.StatusFound, "/select-tenant")
				}
				return common.SendError(c, http.StatusBadRequest, common.CodeMissingTenant, "Tenant ID is required")
			}

			tenant, err := m.lookupTenant(c, tenantRef)
			if err != nil {
				// Only a resolved-but-absent tenant is a 404; a failing
				// store must not masquerade as one.
				if errors.Is(err, services.ErrTenantNotFound) || errors.Is(err, pgx.ErrNoRows) {
					return common.SendError(c, http.StatusNotFound, common.CodeTenantNotFound, "Tenant not found")
				}
				log.Printf("tenant lookup failed for %q: %v", tenantRef, err)
				return common.SendServerError(c, "Could not resolve tenant")
			}
			if tenant == nil {
				return common.SendError(c, http.StatusNotFound, common.CodeTenantNotFound, "Tenant not found")
			}

			userID, ok := common.GetUserIDFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			if !common.IsSuperuserFromContext(c.Request().Context()) {
				member, err := m.tenantUserRepo.HasActiveMembership(c.Request().Context(), userID, tenant.ID)
				if err != nil {
					return common.SendServerError(c, "Could not verify tenant access")
				}
				if !member {
					if isBrowserRequest(c) {
						return c.Redirect(http.StatusFound, "/unauthorized")
					}
					return common.SendError(c, http.StatusForbidden, common.CodeForbidden, "You do not have access to this tenant")
				}
			}

			// Bind the tenant for the remainder of the request. Binding is
			// per-request context, never shared process state.
			ctx := tenantctx.WithTenant(c.Request().Context(), tenant.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			// Echo the resolved tenant for client-side use.
			c.Response().Header().Set("x-tenant-id", tenant.ID.String())
			c.Response().Header().Set("x-tenant-name", tenant.Name)
			c.Response().Header().Set("x-tenant-type", tenant.Type)

			return next(c)
		}
	}
}

// resolveTenantRef finds the tenant reference, first match wins:
// header, query parameter, cookie, then host subdomain.
func resolveTenantRef(c echo.Context) string {
	if headerID := c.Request().Header.Get("x-tenant-id"); headerID != "" {
		return headerID
	}

	if queryID := c.QueryParam("tenantId"); queryID != "" {
		return queryID
	}

	if cookie, err := c.Cookie("tenantId"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return subdomainFromHost(c.Request().Host)
}

// subdomainFromHost returns the first host label when the host has at least
// three dot-separated segments (e.g. tenant.example.com).
func subdomainFromHost(host string) string {
	host = strings.Split(host, ":")[0] // Strip port
	parts := strings.Split(host, ".")
	if len(parts) >= 3 {
		return parts[0]
	}
	return ""
}

// lookupTenant resolves by UUID when the reference parses as one, otherwise by
// subdomain.
func (m *TenantMiddleware) lookupTenant(c echo.Context, ref string) (*models.Tenant, error) {
	ctx := c.Request().Context()
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		return m.tenantSvc.GetByID(ctx, id)
	}
	return m.tenantSvc.GetBySubdomain(ctx, ref)
}

func isBrowserRequest(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "text/html")
}
