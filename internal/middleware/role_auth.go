package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/permissions"
)

// RequireCapability aborts with 403 unless allowed returns true for the
// current user. It must run after RequireAuth.
func RequireCapability(allowed func(*models.User) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := GetCurrentUser(c)
		if !allowed(user) {
			apierrors.Forbidden(c, message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin allows administrators only
func RequireAdmin() gin.HandlerFunc {
	return RequireCapability(permissions.IsAdmin, "Administrator access required")
}

// RequireOrganizationManagers allows administrators and dealers
func RequireOrganizationManagers() gin.HandlerFunc {
	return RequireCapability(permissions.CanManageOrganizations, "Only administrators and dealers can perform this action")
}
