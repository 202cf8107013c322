// Package notify manages notification permission, the push subscription
// lifecycle and the local notification log for a single device.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit is the page size of GetNotifications when none is given.
const DefaultLimit = 50

var (
	ErrNoRegistration = errors.New("service worker registration not available")
	ErrDisplay        = errors.New("notification display failed")
)

type Options struct {
	Permissions    PermissionAPI
	ServiceWorkers ServiceWorkers
	// Display is the fallback used while no registration is cached. May be nil.
	Display  BasicDisplay
	Store    Store
	Registry Registry
	// VAPIDPublicKey is the base64url application server key.
	VAPIDPublicKey string
	UserAgent      string
	Logger         *log.Logger
	Now            func() time.Time
	NewID          func() string
}

// Manager is the one object UI code talks to for notifications on a device.
// It is safe for concurrent use; calls are not ordered relative to each other.
type Manager struct {
	perms     PermissionAPI
	workers   ServiceWorkers
	display   BasicDisplay
	store     Store
	registry  Registry
	vapidKey  string
	userAgent string
	log       *log.Logger
	now       func() time.Time
	newID     func() string

	mu  sync.RWMutex
	reg Registration
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		perms:     opts.Permissions,
		workers:   opts.ServiceWorkers,
		display:   opts.Display,
		store:     opts.Store,
		registry:  opts.Registry,
		vapidKey:  opts.VAPIDPublicKey,
		userAgent: opts.UserAgent,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if m.log == nil {
		m.log = log.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.NewString() }
	}
	return m
}

// Init waits for the service worker registration and caches it. Calling it
// again after success is a no-op. Failures are logged; the manager then
// falls back to basic display and push operations report no registration.
func (m *Manager) Init(ctx context.Context) {
	if m.Registration() != nil {
		return
	}
	if m.workers == nil || !m.workers.Supported() {
		m.log.Printf("[notify] service workers not supported; using basic notifications")
		return
	}
	reg, err := m.workers.Ready(ctx)
	if err != nil || reg == nil {
		m.log.Printf("[notify] service worker registration not ready: %v", err)
		return
	}
	m.mu.Lock()
	if m.reg == nil {
		m.reg = reg
	}
	m.mu.Unlock()
}

// Registration returns the cached registration, or nil before a successful Init.
func (m *Manager) Registration() Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reg
}

func (m *Manager) supported() bool {
	return m.perms != nil && m.perms.Supported()
}

// PermissionState reads the current permission. An unsupported platform
// reports denied so callers never try to prompt.
func (m *Manager) PermissionState() PermissionState {
	if !m.supported() {
		return StateOf(PermissionDenied)
	}
	return StateOf(m.perms.Current())
}

// RequestPermission prompts only from the default state. It returns true
// when permission is granted, whether it already was or was just given;
// use PermissionState first to tell the two apart.
func (m *Manager) RequestPermission(ctx context.Context) (bool, error) {
	if !m.supported() {
		m.log.Printf("[notify] notifications not supported")
		return false, nil
	}
	switch m.perms.Current() {
	case PermissionGranted:
		return true, nil
	case PermissionDenied:
		return false, nil
	}
	p, err := m.perms.Prompt(ctx)
	if err != nil {
		m.log.Printf("[notify] permission prompt failed: %v", err)
		return false, err
	}
	return p == PermissionGranted, nil
}

// SubscribeToPush creates a push subscription on the cached registration and
// forwards it to the registry. A registry failure is logged and does not undo
// the subscription.
func (m *Manager) SubscribeToPush(ctx context.Context) (*Subscription, error) {
	reg := m.Registration()
	if reg == nil {
		m.log.Printf("[notify] subscribe: %v", ErrNoRegistration)
		return nil, ErrNoRegistration
	}
	key, err := DecodeApplicationServerKey(m.vapidKey)
	if err != nil {
		m.log.Printf("[notify] subscribe: %v", err)
		return nil, err
	}
	sub, err := reg.PushManager().Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: key,
	})
	if err != nil {
		m.log.Printf("[notify] push subscribe failed: %v", err)
		return nil, err
	}
	if sub == nil {
		return nil, errors.New("push manager returned no subscription")
	}
	m.sendSubscription(ctx, sub)
	return sub, nil
}

func (m *Manager) sendSubscription(ctx context.Context, sub *Subscription) {
	if m.registry == nil {
		return
	}
	err := m.registry.Subscribe(ctx, SubscribeRequest{
		Subscription: sub,
		UserAgent:    m.userAgent,
		Timestamp:    m.now().UTC(),
	})
	if err != nil {
		m.log.Printf("[notify] send subscription to server failed: %v", err)
	}
}

// UnsubscribeFromPush tears down the existing subscription. It returns false
// when there is no registration or nothing to unsubscribe.
func (m *Manager) UnsubscribeFromPush(ctx context.Context) (bool, error) {
	reg := m.Registration()
	if reg == nil {
		m.log.Printf("[notify] unsubscribe: %v", ErrNoRegistration)
		return false, nil
	}
	pm := reg.PushManager()
	sub, err := pm.GetSubscription(ctx)
	if err != nil {
		m.log.Printf("[notify] get subscription failed: %v", err)
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	ok, err := pm.Unsubscribe(ctx, sub)
	if err != nil {
		m.log.Printf("[notify] push unsubscribe failed: %v", err)
		return false, err
	}
	if !ok {
		m.log.Printf("[notify] push manager kept subscription %s", sub.Endpoint)
		return false, nil
	}
	if m.registry != nil {
		if err := m.registry.Unsubscribe(ctx, UnsubscribeRequest{Subscription: sub}); err != nil {
			m.log.Printf("[notify] remove subscription from server failed: %v", err)
		}
	}
	return true, nil
}

// ReconcileSubscription re-sends the current subscription, if any, so the
// registry converges after a failed forward.
func (m *Manager) ReconcileSubscription(ctx context.Context) error {
	reg := m.Registration()
	if reg == nil || m.registry == nil {
		return nil
	}
	sub, err := reg.PushManager().GetSubscription(ctx)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return nil
	}
	return m.registry.Subscribe(ctx, SubscribeRequest{
		Subscription: sub,
		UserAgent:    m.userAgent,
		Timestamp:    m.now().UTC(),
	})
}

// ShowLocalNotification stores a new record and then displays it. Without
// granted permission it logs and returns nil, nil. The record is persisted
// before display is attempted, so a display error still returns the record.
func (m *Manager) ShowLocalNotification(ctx context.Context, in Input) (*Record, error) {
	if !m.supported() || m.perms.Current() != PermissionGranted {
		m.log.Printf("[notify] permission not granted; dropping %q", in.Title)
		return nil, nil
	}
	rec := &Record{
		ID:        m.newID(),
		Title:     in.Title,
		Body:      in.Body,
		Icon:      in.Icon,
		Image:     in.Image,
		Badge:     in.Badge,
		Tag:       in.Tag,
		Data:      in.Data,
		Actions:   in.Actions,
		Timestamp: m.now().UnixMilli(),
		Category:  in.Category,
		Priority:  in.Priority,
		UserID:    in.UserID,
		Read:      false,
	}
	if rec.Priority == "" {
		rec.Priority = PriorityNormal
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	p := m.presenter()
	if p == nil {
		m.log.Printf("[notify] no display available for %s", rec.ID)
		return rec, nil
	}
	if err := p.Present(ctx, rec); err != nil {
		m.log.Printf("[notify] display %s failed: %v", rec.ID, err)
		return rec, fmt.Errorf("%w: %w", ErrDisplay, err)
	}
	return rec, nil
}

func (m *Manager) presenter() Presenter {
	if reg := m.Registration(); reg != nil {
		return RegistrationPresenter{Registration: reg}
	}
	if m.display != nil {
		return BasicPresenter{Display: m.display}
	}
	return nil
}

// MarkAsRead flags the record as read. Unknown ids are ignored.
func (m *Manager) MarkAsRead(ctx context.Context, id string) error {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	rec.Read = true
	return m.store.Put(ctx, rec)
}

// MarkAsReadFor is MarkAsRead limited to records owned by userID. It reports
// false, without touching the store, for unknown ids and other users' records.
func (m *Manager) MarkAsReadFor(ctx context.Context, userID, id string) (bool, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil || rec.UserID != userID {
		return false, nil
	}
	if rec.Read {
		return true, nil
	}
	rec.Read = true
	return true, m.store.Put(ctx, rec)
}

// GetNotifications returns the user's newest records first, at most limit
// of them. limit <= 0 means DefaultLimit.
func (m *Manager) GetNotifications(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	list, err := m.userRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Manager) userRecords(ctx context.Context, userID string) ([]Record, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// ClearNotifications deletes every record of the user and returns how many
// were removed.
func (m *Manager) ClearNotifications(ctx context.Context, userID string) (int, error) {
	list, err := m.userRecords(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range list {
		if err := m.store.Delete(ctx, r.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
