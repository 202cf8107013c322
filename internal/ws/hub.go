package ws

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"messmate/internal/notify"
)

// DeviceHub tracks connected device sessions by id and by user.
type DeviceHub struct {
	mu       sync.RWMutex
	sessions map[string]*DeviceSession
	// userID -> device id -> session (one user can have several devices)
	byUser map[uint]map[string]*DeviceSession
}

func NewDeviceHub() *DeviceHub {
	return &DeviceHub{
		sessions: make(map[string]*DeviceSession),
		byUser:   make(map[uint]map[string]*DeviceSession),
	}
}

func (h *DeviceHub) Register(s *DeviceSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
	if h.byUser[s.UserID] == nil {
		h.byUser[s.UserID] = make(map[string]*DeviceSession)
	}
	h.byUser[s.UserID][s.ID] = s
}

func (h *DeviceHub) Unregister(s *DeviceSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.sessions[s.ID]; !ok || cur != s {
		return
	}
	delete(h.sessions, s.ID)
	if m := h.byUser[s.UserID]; m != nil {
		delete(m, s.ID)
		if len(m) == 0 {
			delete(h.byUser, s.UserID)
		}
	}
}

// Get returns the session only when it belongs to userID.
func (h *DeviceHub) Get(userID uint, deviceID string) (*DeviceSession, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[deviceID]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// ForUser lists the user's live sessions, oldest connection first.
func (h *DeviceHub) ForUser(userID uint) []*DeviceSession {
	h.mu.RLock()
	m := h.byUser[userID]
	list := make([]*DeviceSession, 0, len(m))
	for _, s := range m {
		if !s.closed() {
			list = append(list, s)
		}
	}
	h.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ConnectedAt.Before(list[j].ConnectedAt) })
	return list
}

func (h *DeviceHub) CountForUser(userID uint) int {
	return len(h.ForUser(userID))
}

func (h *DeviceHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// NotifyUser shows in on every connected device of the user through its
// manager and returns how many devices displayed it.
func (h *DeviceHub) NotifyUser(ctx context.Context, userID uint, in notify.Input) int {
	in.UserID = strconv.FormatUint(uint64(userID), 10)
	shown := 0
	for _, s := range h.ForUser(userID) {
		m := s.Manager()
		if m == nil {
			continue
		}
		rec, err := m.ShowLocalNotification(ctx, in)
		if err != nil {
			log.Printf("[device] %s: %v", s.ID, err)
			continue
		}
		if rec != nil {
			shown++
		}
	}
	return shown
}

// DeviceInfo describes a connected device for listing.
type DeviceInfo struct {
	ID            string                 `json:"id"`
	UserAgent     string                 `json:"userAgent"`
	Permission    notify.PermissionState `json:"permission"`
	ServiceWorker bool                   `json:"serviceWorker"`
	Push          bool                   `json:"push"`
	Registered    bool                   `json:"registered"`
	ConnectedAt   time.Time              `json:"connectedAt"`
}

func (s *DeviceSession) Info() DeviceInfo {
	info := DeviceInfo{
		ID:            s.ID,
		UserAgent:     s.hello.UserAgent,
		ServiceWorker: s.hello.ServiceWorker,
		Push:          s.hello.Push,
		ConnectedAt:   s.ConnectedAt,
	}
	if m := s.Manager(); m != nil {
		info.Permission = m.PermissionState()
		info.Registered = m.Registration() != nil
	}
	return info
}
