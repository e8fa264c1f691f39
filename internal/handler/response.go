package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// badRequest rejects a malformed request body or parameter.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// callerSession returns the caller's session, answering 401 when it is missing.
func callerSession(c *gin.Context) (service.Session, bool) {
	s, ok := middleware.SessionFromContext(c)
	if !ok {
		respondError(c, service.ErrNotAuthenticated)
		return service.Session{}, false
	}
	return s, true
}

// mapErrorToHTTPStatus maps domain, service and repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, domain.ErrInvalidCoordinate),
		errors.Is(err, domain.ErrUnknownRideType),
		errors.Is(err, domain.ErrInvalidPromoCode),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidPaymentType),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidFareAmount),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidIdempotencyKey),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidUserType):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotTripParticipant),
		errors.Is(err, service.ErrDriverRequired),
		errors.Is(err, service.ErrRiderRequired):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTripFinalized),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrActiveTripExists),
		errors.Is(err, service.ErrDriverHasActiveTrip),
		errors.Is(err, service.ErrDriverBusy):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrNoDriverAvailable),
		errors.Is(err, service.ErrEventsUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
