package models

import (
	"time"
)

type Organization struct {
	ID                uint64     `gorm:"primarykey" json:"id"`
	Name              string     `gorm:"type:varchar(255);not null" json:"name"`
	Code              *string    `gorm:"type:varchar(50);index" json:"code"`
	Description       *string    `gorm:"type:text" json:"description"`
	AppURL            *string    `gorm:"type:varchar(1024)" json:"app_url"`
	IsInitialized     bool       `gorm:"not null;default:false" json:"is_initialized"`
	InitializedAt     *time.Time `json:"initialized_at"`
	FactoryAdminEmail *string    `gorm:"type:varchar(255)" json:"factory_admin_email"`
	CreatedBy         *uint64    `gorm:"index" json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relations
	Assignments []Assignment `gorm:"foreignKey:OrganizationID" json:"-"`
	Invitations []Invitation `gorm:"foreignKey:OrganizationID" json:"-"`
}

// HasAppURL reports whether the organization has an org-app to send
// invitees to.
func (o *Organization) HasAppURL() bool {
	return o != nil && o.AppURL != nil && *o.AppURL != ""
}
