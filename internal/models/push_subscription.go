package models

import (
	"time"

	"gorm.io/datatypes"
)

type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is a browser push endpoint registered for a user.
// Endpoints are unique; re-registering one moves it to the new owner.
type PushSubscription struct {
	ID              uint                         `gorm:"primaryKey" json:"id"`
	UserID          uint                         `gorm:"not null;index" json:"user_id"`
	Endpoint        string                       `gorm:"uniqueIndex;size:768;not null" json:"endpoint"`
	Keys            datatypes.JSONType[PushKeys] `json:"keys"`
	ExpirationTime  *int64                       `json:"expiration_time"`
	UserAgent       string                       `gorm:"size:512" json:"user_agent"`
	ClientTimestamp *time.Time                   `json:"client_timestamp"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
