package service

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"messmate/internal/domain"
	"messmate/internal/models"
	"messmate/internal/notify"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// liveWorkers bounds how many users' devices are notified at once; each
// device call can wait up to the device RPC timeout.
const liveWorkers = 8

var (
	ErrNoRecipients    = errors.New("no recipients")
	ErrUnknownRole     = errors.New("unknown role")
	ErrInvalidTemplate = errors.New("invalid notification template")
)

type InboxStore interface {
	Create(n *models.Notification) error
	CreateBatch(list []models.Notification) error
	ListByUserID(userID uint, limit, offset int) ([]models.Notification, error)
	CountUnread(userID uint) (int64, error)
	MarkRead(id, userID uint) (bool, error)
}

type UserDirectory interface {
	ListIDsByRole(role string) ([]uint, error)
	ListByIDs(ids []uint) ([]models.User, error)
}

// LiveNotifier shows a notification on a user's connected devices and
// returns how many devices displayed it.
type LiveNotifier interface {
	NotifyUser(ctx context.Context, userID uint, in notify.Input) int
}

type WebPusher interface {
	SendToUsers(ctx context.Context, userIDs []uint, in notify.Input) (int, error)
}

type TokenPusher interface {
	Send(ctx context.Context, token string, in notify.Input) error
}

// NotificationService writes inbox entries and fans them out over Web Push,
// FCM and live device sessions. Any of the channels may be nil.
type NotificationService struct {
	repo  InboxStore
	users UserDirectory
	web   WebPusher
	fcm   TokenPusher
	live  LiveNotifier
}

func NewNotificationService(repo InboxStore, users UserDirectory, web WebPusher, fcm TokenPusher) *NotificationService {
	return &NotificationService{repo: repo, users: users, web: web, fcm: fcm}
}

// SetLive attaches the device hub once it exists.
func (s *NotificationService) SetLive(live LiveNotifier) {
	s.live = live
}

type BroadcastRequest struct {
	Template string                `json:"template"`
	Params   notify.TemplateParams `json:"params"`
	Input    *notify.Input         `json:"notification"`
	Role     string                `json:"role"`
	UserIDs  []uint                `json:"user_ids"`
}

type BroadcastResult struct {
	Recipients int `json:"recipients"`
	WebPush    int `json:"web_push"`
	FCM        int `json:"fcm"`
	Devices    int `json:"devices"`
}

// ResolveInput builds the notification from a template name or a custom input.
func ResolveInput(template string, params notify.TemplateParams, custom *notify.Input) (notify.Input, error) {
	if template != "" {
		in, err := notify.FromTemplate(template, params)
		if err != nil {
			return notify.Input{}, ErrInvalidTemplate
		}
		return in, nil
	}
	if custom == nil || custom.Title == "" {
		return notify.Input{}, ErrInvalidTemplate
	}
	in := *custom
	if in.Priority == "" {
		in.Priority = notify.PriorityNormal
	}
	if !in.Priority.Valid() || (in.Category != "" && !in.Category.Valid()) {
		return notify.Input{}, ErrInvalidTemplate
	}
	return in, nil
}

func inboxEntry(userID uint, in notify.Input) models.Notification {
	n := models.Notification{
		UserID:   userID,
		Category: string(in.Category),
		Priority: string(in.Priority),
		Title:    in.Title,
		Body:     in.Body,
		Icon:     in.Icon,
		Image:    in.Image,
		Tag:      in.Tag,
	}
	if len(in.Data) > 0 {
		n.Data = datatypes.JSON(in.Data)
	}
	return n
}

// Notify records one inbox entry and delivers it on every channel.
func (s *NotificationService) Notify(ctx context.Context, userID uint, in notify.Input) (*models.Notification, error) {
	n := inboxEntry(userID, in)
	if err := s.repo.Create(&n); err != nil {
		return nil, err
	}
	s.fanOut(ctx, []uint{userID}, in)
	return &n, nil
}

func (s *NotificationService) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error) {
	in, err := ResolveInput(req.Template, req.Params, req.Input)
	if err != nil {
		return nil, err
	}
	if req.Role != "" && !domain.ValidRole(req.Role) {
		return nil, ErrUnknownRole
	}
	ids := req.UserIDs
	if len(ids) == 0 {
		ids, err = s.users.ListIDsByRole(req.Role)
		if err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoRecipients
	}
	entries := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, inboxEntry(id, in))
	}
	if err := s.repo.CreateBatch(entries); err != nil {
		return nil, err
	}
	res := s.fanOut(ctx, ids, in)
	res.Recipients = len(ids)
	log.Printf("[notify] broadcast %q to %d users: web=%d fcm=%d devices=%d",
		in.Title, res.Recipients, res.WebPush, res.FCM, res.Devices)
	return &res, nil
}

func (s *NotificationService) fanOut(ctx context.Context, ids []uint, in notify.Input) BroadcastResult {
	var res BroadcastResult
	if s.web != nil {
		n, err := s.web.SendToUsers(ctx, ids, in)
		if err != nil {
			log.Printf("[push] web push fan-out: %v", err)
		}
		res.WebPush = n
	}
	if s.fcm != nil && s.users != nil {
		users, err := s.users.ListByIDs(ids)
		if err != nil {
			log.Printf("[FCM] load users: %v", err)
		}
		for _, u := range users {
			if u.FCMToken == "" {
				continue
			}
			if err := s.fcm.Send(ctx, u.FCMToken, in); err == nil {
				res.FCM++
			}
		}
	}
	if s.live != nil {
		var shown atomic.Int64
		var g errgroup.Group
		g.SetLimit(liveWorkers)
		for _, id := range ids {
			g.Go(func() error {
				shown.Add(int64(s.live.NotifyUser(ctx, id, in)))
				return nil
			})
		}
		_ = g.Wait()
		res.Devices = int(shown.Load())
	}
	return res
}

func (s *NotificationService) List(userID uint, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > notify.DefaultLimit {
		limit = notify.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUserID(userID, limit, offset)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.repo.CountUnread(userID)
}

func (s *NotificationService) MarkRead(userID, id uint) (bool, error) {
	return s.repo.MarkRead(id, userID)
}
