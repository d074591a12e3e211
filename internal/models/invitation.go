package models

import (
	"fmt"
	"time"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// InvitationRoleFactoryAdmin is the org-app role granted by accepting an
// invitation.
const InvitationRoleFactoryAdmin = "Factory Admin"

// IsTerminal reports whether no further transition is possible.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusExpired
}

// Invitation is a single-use token that lets Email register as the primary
// administrator of an organization's org-app.
//
// PendingKey is set while the invitation is pending and cleared once it is
// terminal; its unique index allows one pending invitation per
// organization and email.
type Invitation struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	Token          string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	OrganizationID uint64           `gorm:"not null;index" json:"organization_id"`
	Email          string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Status         InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Role           string           `gorm:"type:varchar(50);not null" json:"role"`
	PendingKey     *string          `gorm:"type:varchar(300);uniqueIndex" json:"-"`
	CreatedBy      *uint64          `gorm:"index" json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	ExpiresAt      time.Time        `gorm:"not null" json:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

// InvitationPendingKey builds the value of Invitation.PendingKey.
func InvitationPendingKey(organizationID uint64, email string) string {
	return fmt.Sprintf("%d:%s", organizationID, email)
}
