package handler

import (
	"errors"
	"net/http"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// do not leak internals
		msg = "internal server error"
	}
	c.JSON(status, gin.H{
		"error": msg,
	})
}
