package models

import "time"

// Assignment grants a user membership in an organization.
//
// DealerSlot holds the organization ID when the assigned user is a dealer
// and NULL otherwise. Its unique index allows at most one dealer assignment
// per organization.
type Assignment struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	UserID         uint64    `gorm:"not null;uniqueIndex:idx_assignments_user_org;index" json:"user_id"`
	OrganizationID uint64    `gorm:"not null;uniqueIndex:idx_assignments_user_org;index" json:"organization_id"`
	DealerSlot     *uint64   `gorm:"uniqueIndex" json:"-"`
	AssignedAt     time.Time `gorm:"not null;index" json:"assigned_at"`
	AssignedBy     *uint64   `gorm:"index" json:"assigned_by"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
