package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type fakePermissions struct {
	supported bool
	current   Permission
	answer    Permission
	prompts   int
}

func (f *fakePermissions) Supported() bool     { return f.supported }
func (f *fakePermissions) Current() Permission { return f.current }

func (f *fakePermissions) Prompt(ctx context.Context) (Permission, error) {
	f.prompts++
	f.current = f.answer
	return f.answer, nil
}

type fakeWorkers struct {
	supported bool
	reg       Registration
	err       error
	calls     int
}

func (f *fakeWorkers) Supported() bool { return f.supported }

func (f *fakeWorkers) Ready(ctx context.Context) (Registration, error) {
	f.calls++
	return f.reg, f.err
}

type shown struct {
	title string
	opts  ShowOptions
}

type fakeRegistration struct {
	mu    sync.Mutex
	shown []shown
	err   error
	push  *fakePush
}

func (f *fakeRegistration) ShowNotification(ctx context.Context, title string, opts ShowOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, shown{title: title, opts: opts})
	return f.err
}

func (f *fakeRegistration) PushManager() PushManager { return f.push }

type fakePush struct {
	sub          *Subscription
	subscribeErr error
	lastOpts     SubscribeOptions
	unsubscribed int
	keep         bool
}

func (f *fakePush) Subscribe(ctx context.Context, opts SubscribeOptions) (*Subscription, error) {
	f.lastOpts = opts
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.sub = &Subscription{
		Endpoint: "https://push.example.com/send/abc",
		Keys:     SubscriptionKeys{P256dh: "p256", Auth: "auth"},
	}
	return f.sub, nil
}

func (f *fakePush) GetSubscription(ctx context.Context) (*Subscription, error) {
	return f.sub, nil
}

func (f *fakePush) Unsubscribe(ctx context.Context, sub *Subscription) (bool, error) {
	f.unsubscribed++
	if f.keep {
		return false, nil
	}
	f.sub = nil
	return true, nil
}

type fakeDisplay struct {
	titles []string
	opts   []BasicOptions
}

func (f *fakeDisplay) Show(ctx context.Context, title string, opts BasicOptions) error {
	f.titles = append(f.titles, title)
	f.opts = append(f.opts, opts)
	return nil
}

type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	puts    int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]Record)}
}

func (s *memStore) Put(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.records[r.ID] = *r
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) Subscribe(ctx context.Context, req SubscribeRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRegistry) Unsubscribe(ctx context.Context, req UnsubscribeRequest) error {
	return m.Called(ctx, req).Error(0)
}

var errBoom = errors.New("boom")

const testVAPIDKey = "BEl62iUYgUivxIkv69yViEuiBIa-Ib9-SkvMeAtA3LFgDzkrxZJjSgSnfckjBJuBkr3qBUYIHBQFLXYp5Nksh8U"

// fixture wires a manager with a granted, fully capable platform.
type fixture struct {
	perms    *fakePermissions
	workers  *fakeWorkers
	reg      *fakeRegistration
	push     *fakePush
	display  *fakeDisplay
	store    *memStore
	registry *mockRegistry
	clock    time.Time
	seq      int
	m        *Manager
}

func newFixture() *fixture {
	f := &fixture{
		perms:    &fakePermissions{supported: true, current: PermissionGranted},
		push:     &fakePush{},
		display:  &fakeDisplay{},
		store:    newMemStore(),
		registry: &mockRegistry{},
		clock:    time.UnixMilli(1_760_000_000_000),
	}
	f.reg = &fakeRegistration{push: f.push}
	f.workers = &fakeWorkers{supported: true, reg: f.reg}
	f.m = NewManager(Options{
		Permissions:    f.perms,
		ServiceWorkers: f.workers,
		Display:        f.display,
		Store:          f.store,
		Registry:       f.registry,
		VAPIDPublicKey: testVAPIDKey,
		UserAgent:      "test-agent/1.0",
		Logger:         log.New(io.Discard, "", 0),
		Now:            func() time.Time { return f.clock },
		NewID: func() string {
			f.seq++
			return fmt.Sprintf("n-%03d", f.seq)
		},
	})
	return f
}

func (f *fixture) tick(d time.Duration) { f.clock = f.clock.Add(d) }
