// Package permissions derives what a user may do from their role.
//
// Every function is total: a nil user, or a user with a legacy or unknown
// role, has no capabilities.
package permissions

import "github.com/yukikurage/org-access-api/internal/models"

// Capabilities is the full classification of a user.
type Capabilities struct {
	IsAdmin                bool `json:"is_admin"`
	IsDealer               bool `json:"is_dealer"`
	IsConsult              bool `json:"is_consult"`
	IsAudit                bool `json:"is_audit"`
	CanManageOrganizations bool `json:"can_manage_organizations"`
}

func roleOf(user *models.User) models.Role {
	if user == nil {
		return ""
	}
	return user.Role
}

// IsAdmin reports whether user is a console administrator.
func IsAdmin(user *models.User) bool {
	return roleOf(user) == models.RoleAdmin
}

func IsDealer(user *models.User) bool {
	return roleOf(user) == models.RoleDealer
}

func IsConsult(user *models.User) bool {
	return roleOf(user) == models.RoleConsult
}

func IsAudit(user *models.User) bool {
	return roleOf(user) == models.RoleAudit
}

// IsExternalStaff reports whether user may sign in to org-apps through the
// external authentication bridge.
func IsExternalStaff(user *models.User) bool {
	return IsConsult(user) || IsAudit(user)
}

// CanManageOrganizations is true for admins and dealers.
func CanManageOrganizations(user *models.User) bool {
	return IsAdmin(user) || IsDealer(user)
}

// CanManageOrganization reports whether user may manage the organization
// with the given ID. Admins manage every organization; dealers only the ones
// listed in their assignments.
func CanManageOrganization(user *models.User, organizationID uint64, assignments []models.Assignment) bool {
	if IsAdmin(user) {
		return true
	}
	if !IsDealer(user) {
		return false
	}
	for _, a := range assignments {
		if a.UserID == user.ID && a.OrganizationID == organizationID {
			return true
		}
	}
	return false
}

// Classify returns every capability of user at once.
func Classify(user *models.User) Capabilities {
	return Capabilities{
		IsAdmin:                IsAdmin(user),
		IsDealer:               IsDealer(user),
		IsConsult:              IsConsult(user),
		IsAudit:                IsAudit(user),
		CanManageOrganizations: CanManageOrganizations(user),
	}
}
