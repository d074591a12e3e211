package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/constants"
	apierrors "github.com/yukikurage/org-access-api/internal/errors"
	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/permissions"
	"github.com/yukikurage/org-access-api/internal/services"
)

// RequireOrganizationAccess checks that the current user may see the
// organization in the :id parameter. Administrators see every
// organization; everyone else only the ones they are assigned to.
func RequireOrganizationAccess(assignmentService *services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := parseOrganizationID(c)
		if !ok {
			return
		}

		user, _ := GetCurrentUser(c)
		if permissions.IsAdmin(user) {
			c.Set(constants.ContextKeyOrganizationID, orgID)
			c.Next()
			return
		}

		assignments, ok := loadAssignments(c, assignmentService, user)
		if !ok {
			return
		}
		if !isAssigned(assignments, orgID) {
			// Return 404 instead of 403 to avoid leaking organization existence
			apierrors.NotFound(c, "Organization not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyOrganizationID, orgID)
		c.Next()
	}
}

// RequireOrganizationManager checks that the current user may manage the
// organization in the :id parameter: administrators always, dealers only
// for organizations they are assigned to.
func RequireOrganizationManager(assignmentService *services.AssignmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := parseOrganizationID(c)
		if !ok {
			return
		}

		user, _ := GetCurrentUser(c)
		var assignments []models.Assignment
		if permissions.IsDealer(user) {
			if assignments, ok = loadAssignments(c, assignmentService, user); !ok {
				return
			}
		}

		if !permissions.CanManageOrganization(user, orgID, assignments) {
			apierrors.Forbidden(c, "You cannot manage this organization")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyOrganizationID, orgID)
		c.Next()
	}
}

// GetOrganizationID retrieves the organization ID checked by the
// organization middleware
func GetOrganizationID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyOrganizationID)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

func parseOrganizationID(c *gin.Context) (uint64, bool) {
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid organization ID")
		c.Abort()
		return 0, false
	}
	return orgID, true
}

func loadAssignments(c *gin.Context, assignmentService *services.AssignmentService, user *models.User) ([]models.Assignment, bool) {
	if user == nil {
		apierrors.Unauthorized(c, "")
		c.Abort()
		return nil, false
	}

	assignments, err := assignmentService.ListForPrincipal(c.Request.Context(), user.ID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		c.Abort()
		return nil, false
	}
	return assignments, true
}

func isAssigned(assignments []models.Assignment, orgID uint64) bool {
	for _, assignment := range assignments {
		if assignment.OrganizationID == orgID {
			return true
		}
	}
	return false
}
