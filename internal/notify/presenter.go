package notify

import "context"

const (
	DefaultIcon  = "/icons/icon-192x192.png"
	DefaultBadge = "/icons/badge-72x72.png"
)

// Presentation is the display behaviour derived from a priority.
type Presentation struct {
	Vibrate            []int `json:"vibrate,omitempty"`
	Silent             bool  `json:"silent"`
	RequireInteraction bool  `json:"requireInteraction"`
}

// PresentationFor maps a priority to its vibration pattern and flags.
// Unknown priorities are treated as normal.
func PresentationFor(p Priority) Presentation {
	switch p {
	case PriorityUrgent:
		return Presentation{Vibrate: []int{200, 100, 200, 100, 200}, RequireInteraction: true}
	case PriorityHigh:
		return Presentation{Vibrate: []int{200, 100, 200}}
	case PriorityLow:
		return Presentation{Silent: true}
	default:
		return Presentation{Vibrate: []int{200}}
	}
}

// Presenter displays a stored record to the user.
type Presenter interface {
	Present(ctx context.Context, r *Record) error
}

// RegistrationPresenter displays through a service worker registration with
// the full option set.
type RegistrationPresenter struct {
	Registration Registration
}

func (p RegistrationPresenter) Present(ctx context.Context, r *Record) error {
	return p.Registration.ShowNotification(ctx, r.Title, ShowOptionsFor(r))
}

// ShowOptionsFor builds the rich display options for r.
func ShowOptionsFor(r *Record) ShowOptions {
	pres := PresentationFor(r.Priority)
	opts := ShowOptions{
		Body:               r.Body,
		Icon:               r.Icon,
		Image:              r.Image,
		Badge:              r.Badge,
		Tag:                r.Tag,
		Data:               r.Data,
		Actions:            r.Actions,
		Vibrate:            pres.Vibrate,
		Silent:             pres.Silent,
		RequireInteraction: pres.RequireInteraction,
		Timestamp:          r.Timestamp,
	}
	if opts.Icon == "" {
		opts.Icon = DefaultIcon
	}
	if opts.Badge == "" {
		opts.Badge = DefaultBadge
	}
	return opts
}

// BasicPresenter displays through the plain Notification constructor. It
// cannot vibrate, show actions or require interaction.
type BasicPresenter struct {
	Display BasicDisplay
}

func (p BasicPresenter) Present(ctx context.Context, r *Record) error {
	icon := r.Icon
	if icon == "" {
		icon = DefaultIcon
	}
	return p.Display.Show(ctx, r.Title, BasicOptions{
		Body: r.Body,
		Icon: icon,
		Tag:  r.Tag,
		Data: r.Data,
	})
}
