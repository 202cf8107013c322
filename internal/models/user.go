package models

import (
	"time"

	"messmate/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name            string         `gorm:"size:128" json:"name"`
	Phone           string         `gorm:"size:32" json:"phone"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	Role            string         `gorm:"size:20;not null;index" json:"role"` // ADMIN | MESS_OWNER | USER
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	FCMToken        string         `gorm:"size:512" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool     { return u.Role == domain.RoleAdmin }
func (u *User) IsMessOwner() bool { return u.Role == domain.RoleMessOwner }
func (u *User) Verified() bool    { return u.EmailVerifiedAt != nil }
