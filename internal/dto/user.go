package dto

import (
	"time"

	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/permissions"
)

// UserDTO represents a user in API responses. It never carries credential
// material.
type UserDTO struct {
	ID             uint64      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	AvatarURL      *string     `json:"avatar_url"`
	Role           models.Role `json:"role"`
	InviteHashcode *string     `json:"invite_hashcode,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// UserSummaryDTO is the short form used inside other resources
type UserSummaryDTO struct {
	ID       uint64      `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// CurrentUserDTO is the signed-in user with their capabilities
type CurrentUserDTO struct {
	UserDTO
	Capabilities permissions.Capabilities `json:"capabilities"`
}

// UserWithOrganizationsDTO is a user row in the administrator's user list
type UserWithOrganizationsDTO struct {
	UserDTO
	Organizations []OrganizationRefDTO `json:"organizations"`
}

// ToUserDTO converts a user to DTO. The standing invite hashcode is only
// included when withHashcode is set.
func ToUserDTO(user models.User, withHashcode bool) UserDTO {
	out := UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if withHashcode {
		out.InviteHashcode = user.InviteHashcode
	}
	return out
}

// ToExternalUserDTO converts a user for an org-app. The standing invite
// hashcode is always present so the org-app can match it later.
func ToExternalUserDTO(user models.User) UserDTO {
	return ToUserDTO(user, true)
}

// ToUserSummaryDTO converts a user to its short form
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// ToCurrentUserDTO converts the signed-in user to DTO
func ToCurrentUserDTO(user models.User) CurrentUserDTO {
	return CurrentUserDTO{
		UserDTO:      ToUserDTO(user, user.Role.UsesStandingInvite()),
		Capabilities: permissions.Classify(&user),
	}
}

// ToUserWithOrganizationsDTO converts a user with preloaded assignments
func ToUserWithOrganizationsDTO(user models.User) UserWithOrganizationsDTO {
	orgs := make([]OrganizationRefDTO, len(user.Assignments))
	for i, assignment := range user.Assignments {
		orgs[i] = ToOrganizationRefDTO(assignment.Organization)
	}
	return UserWithOrganizationsDTO{
		UserDTO:       ToUserDTO(user, true),
		Organizations: orgs,
	}
}
