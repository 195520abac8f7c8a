package entities

import (
	"strings"
	"time"
)

// User is a registered account. Accounts are deactivated, never deleted.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	FirstName      string     `gorm:"size:150" json:"first_name"`
	LastName       string     `gorm:"size:150" json:"last_name"`
	Email          string     `gorm:"index;size:254" json:"email"`
	PasswordHash   string     `gorm:"size:255;not null" json:"-"`
	ProfilePicture string     `gorm:"size:255" json:"profile_picture,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	IsStaff        bool       `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser    bool       `gorm:"not null;default:false" json:"is_superuser"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"date_joined"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
