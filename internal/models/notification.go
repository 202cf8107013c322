package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification is a server-side inbox entry.
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Category  string         `gorm:"size:50;not null;index" json:"category"`
	Priority  string         `gorm:"size:16;not null;default:normal" json:"priority"`
	Title     string         `gorm:"size:255" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Icon      string         `gorm:"size:512" json:"icon,omitempty"`
	Image     string         `gorm:"size:512" json:"image,omitempty"`
	Tag       string         `gorm:"size:64" json:"tag,omitempty"`
	Data      datatypes.JSON `json:"data"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
