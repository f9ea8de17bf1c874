package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/lead-dispatch/internal/services"
)

// Error codes returned in ErrorResponse.Code. Clients branch on these, not
// on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeInvalidConfig = "invalid_config"
	ErrCodeLockTimeout   = "lock_timeout"
	ErrCodeTimeout       = "timeout"
)

// serviceFail maps a service error to a status and code and aborts c.
func serviceFail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLeadNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrArtisanNotFound),
		errors.Is(err, services.ErrConfigNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidReleaseReason),
		errors.Is(err, services.ErrInvalidMonth),
		errors.Is(err, services.ErrSelfMerge):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrMergeCycle),
		errors.Is(err, services.ErrAlreadyMerged),
		errors.Is(err, services.ErrAssignmentConsumed):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidStrategy):
		// the stored configuration is unusable; nothing the caller sent
		fail(c, http.StatusConflict, ErrCodeInvalidConfig, err.Error())
	case errors.Is(err, services.ErrLockNotAcquired):
		c.Header("Retry-After", "1")
		fail(c, http.StatusServiceUnavailable, ErrCodeLockTimeout, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
