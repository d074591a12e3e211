package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the console-wide role of a user.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDealer  Role = "Dealer"
	RoleConsult Role = "Consult"
	RoleAudit   Role = "Audit"
)

// Legacy roles still present on old rows. They are readable but never
// assignable and carry no capabilities.
const (
	RoleLegacyProjectOwner Role = "project_owner"
	RoleLegacyConsultant   Role = "consultant"
	RoleLegacyProjectStaff Role = "project_staff"
)

// AssignableRoles lists the roles that can be written to a user.
var AssignableRoles = []Role{RoleAdmin, RoleDealer, RoleConsult, RoleAudit}

var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts s into an assignable Role. Legacy roles are rejected.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.IsAssignable() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// IsAssignable reports whether r may be written to a user record.
func (r Role) IsAssignable() bool {
	switch r {
	case RoleAdmin, RoleDealer, RoleConsult, RoleAudit:
		return true
	}
	return false
}

// IsLegacy reports whether r is one of the tolerated legacy values.
func (r Role) IsLegacy() bool {
	switch r {
	case RoleLegacyProjectOwner, RoleLegacyConsultant, RoleLegacyProjectStaff:
		return true
	}
	return false
}

// UsesStandingInvite reports whether users with this role are invited to
// org-apps with a standing hashcode.
func (r Role) UsesStandingInvite() bool {
	return r == RoleConsult || r == RoleAudit
}

func (r Role) String() string {
	return string(r)
}
