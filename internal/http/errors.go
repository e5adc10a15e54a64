package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"postly/internal/service"
)

// statusFromError maps service errors to HTTP status codes and the detail
// message clients display.
func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, service.ErrNotOwner):
		return http.StatusNotFound, "Post not found or you don't have permission to modify it"
	case errors.Is(err, service.ErrMediaTooLarge):
		return http.StatusRequestEntityTooLarge, capitalize(err.Error())
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, capitalize(strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": "))
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, detail := statusFromError(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithField("path", c.Request.URL.Path).Errorf("internal error: %v", err)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
