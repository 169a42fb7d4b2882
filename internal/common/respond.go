package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stable machine-readable error codes returned in the response envelope.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeTokenRevoked         = "TOKEN_REVOKED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeMissingTenant        = "MISSING_TENANT"
	CodeTenantNotFound       = "TENANT_NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeMissingTenantContext = "MISSING_TENANT_CONTEXT"
	CodeConflict             = "CONFLICT"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// ErrorResponse is the standardized failure envelope.
type ErrorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// SuccessResponse is the standardized success envelope.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    interface{} `json:"meta,omitempty"`
}

// CreateErrorResponse creates a standardized error envelope.
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Success = false
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendError sends an error envelope with the given status.
func SendError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, CreateErrorResponse(code, message, nil))
}

// SendValidationError sends a 400 with per-field details.
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse(CodeValidationError, "Validation failed", details))
}

// SendNotFoundError sends a 404 for a resolved-but-absent resource.
func SendNotFoundError(c echo.Context, resource string) error {
	return SendError(c, http.StatusNotFound, CodeNotFound, resource+" not found")
}

// SendUnauthorizedError sends a 401.
func SendUnauthorizedError(c echo.Context) error {
	return SendError(c, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized access")
}

// SendServerError sends a generic 500 without leaking internals.
func SendServerError(c echo.Context, message string) error {
	return SendError(c, http.StatusInternalServerError, CodeInternalError, message)
}

// SendSuccess sends a success envelope with the given status.
func SendSuccess(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, &SuccessResponse{Success: true, Data: data})
}
