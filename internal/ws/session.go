package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"messmate/internal/notify"

	"github.com/gorilla/websocket"
)

var (
	ErrSessionClosed   = errors.New("device session closed")
	errUnexpectedFrame = errors.New("unexpected frame")
)

const sendBuffer = 64

// DeviceSession is one connected dashboard page. It implements the
// notification platform ports by request/response frames over the socket
// and owns the notify.Manager for that device.
type DeviceSession struct {
	ID          string
	UserID      uint
	Role        string
	ConnectedAt time.Time

	conn    *websocket.Conn
	hello   Hello
	timeout time.Duration
	send    chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	seq     atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan Frame
	perm    notify.Permission
	manager *notify.Manager
}

func newDeviceSession(id string, userID uint, role string, conn *websocket.Conn, hello Hello, timeout time.Duration) *DeviceSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &DeviceSession{
		ID:          id,
		UserID:      userID,
		Role:        role,
		ConnectedAt: time.Now(),
		conn:        conn,
		hello:       hello,
		timeout:     timeout,
		send:        make(chan []byte, sendBuffer),
		ctx:         ctx,
		cancel:      cancel,
		pending:     make(map[string]chan Frame),
		perm:        hello.Permission,
	}
}

// Context is cancelled when the session closes.
func (s *DeviceSession) Context() context.Context { return s.ctx }

func (s *DeviceSession) Hello() Hello { return s.hello }

func (s *DeviceSession) Manager() *notify.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

func (s *DeviceSession) setManager(m *notify.Manager) {
	s.mu.Lock()
	s.manager = m
	s.mu.Unlock()
}

func (s *DeviceSession) permission() notify.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

func (s *DeviceSession) setPermission(p notify.Permission) {
	s.mu.Lock()
	s.perm = p
	s.mu.Unlock()
}

// PlatformOptions returns manager options with every platform port bound to
// this session. Callers fill in Store, Registry and the VAPID key.
func (s *DeviceSession) PlatformOptions() notify.Options {
	return notify.Options{
		Permissions:    permissionPort{s},
		ServiceWorkers: swPort{s},
		Display:        basicDisplay{s},
		UserAgent:      s.hello.UserAgent,
	}
}

func (s *DeviceSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}

func (s *DeviceSession) closed() bool { return s.ctx.Err() != nil }

func (s *DeviceSession) enqueue(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case s.send <- data:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DeviceSession) event(typ string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.enqueue(s.ctx, Frame{Type: typ, Payload: raw})
}

// call sends a request and waits for the matching response, decoding its
// payload into out when out is non-nil.
func (s *DeviceSession) call(ctx context.Context, typ string, params, out interface{}) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}

	id := strconv.FormatUint(s.seq.Add(1), 10)
	ch := make(chan Frame, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.enqueue(ctx, Frame{ID: id, Type: typ, Payload: raw}); err != nil {
		return err
	}
	select {
	case resp := <-ch:
		if resp.Error != "" {
			return &RemoteError{Type: typ, Message: resp.Error}
		}
		if out != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, out); err != nil {
				return fmt.Errorf("decode %s response: %w", typ, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", typ, ctx.Err())
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

func (s *DeviceSession) resolve(f Frame) {
	s.mu.Lock()
	ch, ok := s.pending[f.ID]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- f:
	default:
	}
}

func (s *DeviceSession) handle(f Frame) {
	switch {
	case f.isResponse():
		s.resolve(f)
	case f.Type == EventPermission:
		var p permissionPayload
		if err := json.Unmarshal(f.Payload, &p); err == nil && p.Permission != "" {
			s.setPermission(p.Permission)
		}
	}
}

func (s *DeviceSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// readPump blocks until the connection fails or the session closes.
func (s *DeviceSession) readPump() {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		s.handle(f)
	}
}

type permissionPort struct{ s *DeviceSession }

func (p permissionPort) Supported() bool { return p.s.hello.Notifications }

func (p permissionPort) Current() notify.Permission { return p.s.permission() }

func (p permissionPort) Prompt(ctx context.Context) (notify.Permission, error) {
	var out permissionPayload
	if err := p.s.call(ctx, ReqPermission, nil, &out); err != nil {
		return p.s.permission(), err
	}
	p.s.setPermission(out.Permission)
	return out.Permission, nil
}

type swPort struct{ s *DeviceSession }

func (w swPort) Supported() bool { return w.s.hello.ServiceWorker }

func (w swPort) Ready(ctx context.Context) (notify.Registration, error) {
	var out swReadyResult
	if err := w.s.call(ctx, ReqServiceWorker, nil, &out); err != nil {
		return nil, err
	}
	if !out.Ready {
		return nil, notify.ErrNoRegistration
	}
	return registration{w.s}, nil
}

type registration struct{ s *DeviceSession }

func (r registration) ShowNotification(ctx context.Context, title string, opts notify.ShowOptions) error {
	return r.s.call(ctx, ReqShow, showParams{Title: title, Options: opts}, nil)
}

func (r registration) PushManager() notify.PushManager { return pushManager{r.s} }

type pushManager struct{ s *DeviceSession }

func (p pushManager) Subscribe(ctx context.Context, opts notify.SubscribeOptions) (*notify.Subscription, error) {
	if !p.s.hello.Push {
		return nil, errors.New("push not supported on this device")
	}
	var out subscriptionResult
	err := p.s.call(ctx, ReqPushSubscribe, subscribeParams{
		UserVisibleOnly:      opts.UserVisibleOnly,
		ApplicationServerKey: base64.RawURLEncoding.EncodeToString(opts.ApplicationServerKey),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Subscription, nil
}

func (p pushManager) GetSubscription(ctx context.Context) (*notify.Subscription, error) {
	if !p.s.hello.Push {
		return nil, nil
	}
	var out subscriptionResult
	if err := p.s.call(ctx, ReqPushGet, nil, &out); err != nil {
		return nil, err
	}
	return out.Subscription, nil
}

func (p pushManager) Unsubscribe(ctx context.Context, sub *notify.Subscription) (bool, error) {
	var out unsubscribeResult
	if err := p.s.call(ctx, ReqPushUnsubscribe, unsubscribeParams{Endpoint: sub.Endpoint}, &out); err != nil {
		return false, err
	}
	return out.Unsubscribed, nil
}

type basicDisplay struct{ s *DeviceSession }

func (b basicDisplay) Show(ctx context.Context, title string, opts notify.BasicOptions) error {
	return b.s.call(ctx, ReqShowBasic, basicParams{Title: title, Options: opts}, nil)
}
