package models

import "time"

// UserOTP is a one-time code sent by email. Only the bcrypt hash is kept.
type UserOTP struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index:idx_otp_user_purpose" json:"user_id"`
	Purpose    string     `gorm:"size:32;not null;index:idx_otp_user_purpose" json:"purpose"`
	CodeHash   string     `gorm:"size:255;not null" json:"-"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (UserOTP) TableName() string {
	return "user_otps"
}

func (o *UserOTP) Expired(now time.Time) bool { return !now.Before(o.ExpiresAt) }
