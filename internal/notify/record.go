package notify

import "encoding/json"

type Category string

const (
	CategoryMealReady     Category = "meal-ready"
	CategoryPaymentDue    Category = "payment-due"
	CategoryLeaveApproved Category = "leave-approved"
	CategoryLeaveRejected Category = "leave-rejected"
	CategorySystemUpdate  Category = "system-update"
	CategoryPromotion     Category = "promotion"
	CategoryReminder      Category = "reminder"
	CategoryEmergency     Category = "emergency"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMealReady, CategoryPaymentDue, CategoryLeaveApproved, CategoryLeaveRejected,
		CategorySystemUpdate, CategoryPromotion, CategoryReminder, CategoryEmergency:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Action is a button the user can press on a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Input carries everything about a notification except its identity
// (id, timestamp, read flag), which the manager assigns.
type Input struct {
	Title    string          `json:"title" binding:"required"`
	Body     string          `json:"body"`
	Icon     string          `json:"icon,omitempty"`
	Image    string          `json:"image,omitempty"`
	Badge    string          `json:"badge,omitempty"`
	Tag      string          `json:"tag,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Actions  []Action        `json:"actions,omitempty"`
	Category Category        `json:"category"`
	Priority Priority        `json:"priority"`
	UserID   string          `json:"userId"`
}

// Record is one notification instance kept in the local store.
type Record struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Icon      string          `json:"icon,omitempty"`
	Image     string          `json:"image,omitempty"`
	Badge     string          `json:"badge,omitempty"`
	Tag       string          `json:"tag,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Actions   []Action        `json:"actions,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Category  Category        `json:"category"`
	Priority  Priority        `json:"priority"`
	UserID    string          `json:"userId"`
	Read      bool            `json:"read"`
}
