package dto

import (
	"time"

	"github.com/yukikurage/org-access-api/internal/models"
	"github.com/yukikurage/org-access-api/internal/services"
)

// InvitationDTO represents an invitation in API responses
type InvitationDTO struct {
	ID             uint64                  `json:"id"`
	Token          string                  `json:"token"`
	OrganizationID uint64                  `json:"organization_id"`
	Email          string                  `json:"email"`
	Status         models.InvitationStatus `json:"status"`
	Role           string                  `json:"role"`
	CreatedAt      time.Time               `json:"created_at"`
	ExpiresAt      time.Time               `json:"expires_at"`
	AcceptedAt     *time.Time              `json:"accepted_at"`
	Organization   *OrganizationRefDTO     `json:"organization,omitempty"`
	InviteLink     string                  `json:"invite_link,omitempty"`
}

// ToInvitationDTO converts an invitation to DTO. The organization is
// included when it was loaded with the invitation.
func ToInvitationDTO(inv models.Invitation) InvitationDTO {
	out := InvitationDTO{
		ID:             inv.ID,
		Token:          inv.Token,
		OrganizationID: inv.OrganizationID,
		Email:          inv.Email,
		Status:         inv.Status,
		Role:           inv.Role,
		CreatedAt:      inv.CreatedAt,
		ExpiresAt:      inv.ExpiresAt,
		AcceptedAt:     inv.AcceptedAt,
	}
	if inv.Organization.ID != 0 {
		org := ToOrganizationRefDTO(inv.Organization)
		out.Organization = &org
		out.InviteLink = services.InvitationLink(&inv.Organization, &inv)
	}
	return out
}

// ToInvitationDTOs converts invitations to DTOs
func ToInvitationDTOs(invitations []models.Invitation) []InvitationDTO {
	out := make([]InvitationDTO, len(invitations))
	for i, inv := range invitations {
		out[i] = ToInvitationDTO(inv)
	}
	return out
}
