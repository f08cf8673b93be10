// Package handlers provides HTTP handler implementations for the local
// control API.
//
// This file holds the response helpers shared by every endpoint: the error
// envelope, the error-to-status mapping and small success writers.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recur-sync/internal/http/middleware"
	"github.com/tbourn/recur-sync/internal/remote"
	"github.com/tbourn/recur-sync/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"invalid_payload"`
	// Human-readable message
	Message string `json:"message" example:"invalid payload: next_billing_date must be YYYY-MM-DD"`
}

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// validationErrs are the sentinels that mean "the request itself is wrong".
var validationErrs = []error{
	services.ErrInvalidPayload,
	services.ErrInvalidName,
	services.ErrInvalidAmount,
	services.ErrInvalidCurrency,
	services.ErrInvalidBillingCycle,
	services.ErrInvalidColor,
	services.ErrInvalidEmail,
	services.ErrMissingID,
}

// failErr maps err onto a status and code. Anything unrecognised becomes a
// 500 with fallbackCode.
func failErr(c *gin.Context, err error, fallbackCode string) {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, services.ErrInvalidAction):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAction, err.Error())
	case errors.Is(err, services.ErrUnsupportedAction):
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedAction, err.Error())
	case isValidation(err):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPayload, err.Error())
	case errors.Is(err, services.ErrActionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "action not found")
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			fail(c, apiErr.Status, ErrCodeRemoteRejected, apiErr.Message)
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeRemoteError, apiErr.Error())
	case remote.IsNetworkError(err):
		fail(c, http.StatusServiceUnavailable, ErrCodeRemoteUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeRemoteTimeout, "remote call timed out")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

func isValidation(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ok writes a JSON success response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes 204.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
