package notify

import (
	"context"
	"encoding/json"
)

// Permission is the platform's notification permission tri-state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// PermissionState projects a Permission into flags for UI code.
type PermissionState struct {
	Granted   bool `json:"granted"`
	Denied    bool `json:"denied"`
	Default   bool `json:"default"`
	CanPrompt bool `json:"canPrompt"`
}

// StateOf projects p. Anything that is not granted or default counts as denied.
func StateOf(p Permission) PermissionState {
	switch p {
	case PermissionGranted:
		return PermissionState{Granted: true}
	case PermissionDefault:
		return PermissionState{Default: true, CanPrompt: true}
	default:
		return PermissionState{Denied: true}
	}
}

// PermissionAPI is the platform's Notification permission surface.
type PermissionAPI interface {
	Supported() bool
	Current() Permission
	// Prompt shows the native permission prompt and blocks until the user answers.
	Prompt(ctx context.Context) (Permission, error)
}

// ServiceWorkers is the platform's service worker container.
type ServiceWorkers interface {
	Supported() bool
	// Ready blocks until the active registration is available.
	Ready(ctx context.Context) (Registration, error)
}

// Registration is an active service worker registration.
type Registration interface {
	ShowNotification(ctx context.Context, title string, opts ShowOptions) error
	PushManager() PushManager
}

// PushManager manages the push subscription owned by a registration.
type PushManager interface {
	Subscribe(ctx context.Context, opts SubscribeOptions) (*Subscription, error)
	// GetSubscription returns nil when no subscription exists.
	GetSubscription(ctx context.Context) (*Subscription, error)
	Unsubscribe(ctx context.Context, sub *Subscription) (bool, error)
}

// BasicDisplay is the in-page Notification constructor used when no
// service worker registration is available.
type BasicDisplay interface {
	Show(ctx context.Context, title string, opts BasicOptions) error
}

type SubscribeOptions struct {
	UserVisibleOnly      bool   `json:"userVisibleOnly"`
	ApplicationServerKey []byte `json:"applicationServerKey"`
}

// Subscription mirrors the browser PushSubscription JSON shape.
type Subscription struct {
	Endpoint       string           `json:"endpoint" binding:"required"`
	ExpirationTime *int64           `json:"expirationTime"`
	Keys           SubscriptionKeys `json:"keys"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// ShowOptions are the options accepted by Registration.ShowNotification.
type ShowOptions struct {
	Body               string          `json:"body,omitempty"`
	Icon               string          `json:"icon,omitempty"`
	Image              string          `json:"image,omitempty"`
	Badge              string          `json:"badge,omitempty"`
	Tag                string          `json:"tag,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
	Actions            []Action        `json:"actions,omitempty"`
	Vibrate            []int           `json:"vibrate,omitempty"`
	Silent             bool            `json:"silent"`
	RequireInteraction bool            `json:"requireInteraction"`
	Timestamp          int64           `json:"timestamp,omitempty"`
}

// BasicOptions is the reduced option set of the plain Notification constructor.
type BasicOptions struct {
	Body string          `json:"body,omitempty"`
	Icon string          `json:"icon,omitempty"`
	Tag  string          `json:"tag,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}
