package models

import (
	"time"
)

type User struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	AvatarURL      *string   `gorm:"type:varchar(1024)" json:"avatar_url"`
	Role           Role      `gorm:"type:varchar(32);index;not null" json:"role"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	InviteHashcode *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Assignments []Assignment `gorm:"foreignKey:UserID" json:"-"`
}
