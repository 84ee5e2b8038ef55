package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/models"
	"taskboard/internal/repositories"
	"taskboard/internal/services"
)

// Context keys set by the auth middleware.
const (
	CtxMemberID    = "member_id"
	CtxMemberEmail = "member_email"
	CtxRole        = "role"
	CtxClaims      = "claims"
)

func getMemberAndRole(c *gin.Context) (memberID string, role models.Role) {
	memberID = c.GetString(CtxMemberID)
	if v, ok := c.Get(CtxRole); ok {
		role, _ = v.(models.Role)
	}
	return
}

// idParam reads a uuid path parameter; on failure it writes 400 and
// returns false.
func idParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return "", false
	}
	return raw, true
}

// statusFor maps service errors onto HTTP codes and client-safe messages.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrDashboardLoad):
		return http.StatusInternalServerError, services.ErrDashboardLoad.Error()
	case errors.Is(err, services.ErrProfileLoad):
		return http.StatusInternalServerError, services.ErrProfileLoad.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	code, msg := statusFor(err, fallback)
	c.JSON(code, gin.H{"error": msg})
}
