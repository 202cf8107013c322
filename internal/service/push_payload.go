package service

import (
	"encoding/json"

	"messmate/internal/notify"
)

// PushPayload is the JSON body a service worker receives in its push event.
type PushPayload struct {
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge"`
	Image              string          `json:"image,omitempty"`
	Tag                string          `json:"tag,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
	Actions            []notify.Action `json:"actions,omitempty"`
	Category           notify.Category `json:"category,omitempty"`
	Priority           notify.Priority `json:"priority"`
	Vibrate            []int           `json:"vibrate,omitempty"`
	Silent             bool            `json:"silent,omitempty"`
	RequireInteraction bool            `json:"requireInteraction,omitempty"`
}

// NewPushPayload applies the same icon fallbacks and priority presentation
// as local display.
func NewPushPayload(in notify.Input) PushPayload {
	pr := in.Priority
	if pr == "" {
		pr = notify.PriorityNormal
	}
	pres := notify.PresentationFor(pr)
	p := PushPayload{
		Title:              in.Title,
		Body:               in.Body,
		Icon:               in.Icon,
		Badge:              in.Badge,
		Image:              in.Image,
		Tag:                in.Tag,
		Data:               in.Data,
		Actions:            in.Actions,
		Category:           in.Category,
		Priority:           pr,
		Vibrate:            pres.Vibrate,
		Silent:             pres.Silent,
		RequireInteraction: pres.RequireInteraction,
	}
	if p.Icon == "" {
		p.Icon = notify.DefaultIcon
	}
	if p.Badge == "" {
		p.Badge = notify.DefaultBadge
	}
	return p
}
