package handlers

import (
	"errors"
	"net/http"

	"studiobook/internal/cache"
	apperrors "studiobook/internal/errors"
	"studiobook/internal/middleware"
	"studiobook/internal/models"
	"studiobook/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
	}
}

// statusForError maps the engine's sentinel errors to HTTP statuses.
// Anything unmapped is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrMemberNotFound),
		errors.Is(err, apperrors.ErrSessionNotFound),
		errors.Is(err, apperrors.ErrBookingNotFound),
		errors.Is(err, apperrors.ErrDropInNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicateBooking),
		errors.Is(err, apperrors.ErrDuplicateDropIn):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrInvalidAction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the mapped status. Sentinel errors surface their own
// message; internal errors hide behind a generic one.
func respondError(c *gin.Context, err error, internalMsg string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": internalMsg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// callerID returns the authenticated member id from the request context.
func callerID(c *gin.Context) (int64, bool) {
	return middleware.MemberIDFromContext(c.Request.Context())
}

// canActFor reports whether the caller may act on behalf of memberID.
// Members act only for themselves; staff acts for anyone.
func canActFor(c *gin.Context, memberID int64) bool {
	if middleware.RoleFromContext(c.Request.Context()) == models.RoleStaff {
		return true
	}
	id, ok := callerID(c)
	return ok && id == memberID
}
