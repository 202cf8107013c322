package ws

import (
	"encoding/json"
	"fmt"

	"messmate/internal/notify"
)

// Requests sent from the server to the page. The page answers each with a
// frame carrying the same id and either a payload or an error. Answer
// payloads:
//
//	permission.request   {"permission": "granted"|"denied"|"default"}
//	sw.ready             {"ready": true}
//	push.subscribe       {"subscription": PushSubscription.toJSON()}
//	push.get             {"subscription": PushSubscription.toJSON() | null}
//	push.unsubscribe     {"unsubscribed": true|false}
//	notification.show    empty
//	notification.basic   empty
//
// The subscription is always wrapped in the "subscription" field; a bare
// subscription object decodes as no subscription.
const (
	ReqPermission      = "permission.request"
	ReqServiceWorker   = "sw.ready"
	ReqPushSubscribe   = "push.subscribe"
	ReqPushGet         = "push.get"
	ReqPushUnsubscribe = "push.unsubscribe"
	ReqShow            = "notification.show"
	ReqShowBasic       = "notification.basic"
)

// Events carry no id and expect no answer.
const (
	EventHello      = "hello"
	EventPermission = "permission"
	EventWelcome    = "welcome"
	EventError      = "error"
)

// Frame is the single envelope used in both directions.
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (f Frame) isResponse() bool { return f.ID != "" && f.Type == "" }

// Hello is the first frame a page sends: what the browser supports and the
// current permission.
type Hello struct {
	Permission    notify.Permission `json:"permission"`
	Notifications bool              `json:"notifications"`
	ServiceWorker bool              `json:"serviceWorker"`
	Push          bool              `json:"push"`
	UserAgent     string            `json:"userAgent"`
}

type permissionPayload struct {
	Permission notify.Permission `json:"permission"`
}

type welcomePayload struct {
	DeviceID string `json:"deviceId"`
}

type swReadyResult struct {
	Ready bool `json:"ready"`
}

type subscribeParams struct {
	UserVisibleOnly bool `json:"userVisibleOnly"`
	// ApplicationServerKey is base64url without padding, as PushManager accepts it.
	ApplicationServerKey string `json:"applicationServerKey"`
}

type subscriptionResult struct {
	Subscription *notify.Subscription `json:"subscription"`
}

type unsubscribeParams struct {
	Endpoint string `json:"endpoint"`
}

type unsubscribeResult struct {
	Unsubscribed bool `json:"unsubscribed"`
}

type showParams struct {
	Title   string             `json:"title"`
	Options notify.ShowOptions `json:"options"`
}

type basicParams struct {
	Title   string              `json:"title"`
	Options notify.BasicOptions `json:"options"`
}

// RemoteError is an error reported by the page for a request.
type RemoteError struct {
	Type    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Type, e.Message)
}
