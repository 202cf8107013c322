package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestManager_PermissionState(t *testing.T) {
	tests := []struct {
		name      string
		supported bool
		current   Permission
		want      PermissionState
	}{
		{"granted", true, PermissionGranted, PermissionState{Granted: true}},
		{"denied", true, PermissionDenied, PermissionState{Denied: true}},
		{"default", true, PermissionDefault, PermissionState{Default: true, CanPrompt: true}},
		{"unsupported", false, PermissionDefault, PermissionState{Denied: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.perms.supported = tt.supported
			f.perms.current = tt.current
			got := f.m.PermissionState()
			assert.Equal(t, tt.want, got)

			set := 0
			for _, b := range []bool{got.Granted, got.Denied, got.Default} {
				if b {
					set++
				}
			}
			assert.Equal(t, 1, set, "exactly one state")
			assert.Equal(t, got.Default, got.CanPrompt)
		})
	}
}

func TestManager_RequestPermission(t *testing.T) {
	tests := []struct {
		name        string
		supported   bool
		current     Permission
		answer      Permission
		want        bool
		wantPrompts int
	}{
		{"already granted", true, PermissionGranted, PermissionDenied, true, 0},
		{"already denied", true, PermissionDenied, PermissionGranted, false, 0},
		{"default accepted", true, PermissionDefault, PermissionGranted, true, 1},
		{"default rejected", true, PermissionDefault, PermissionDenied, false, 1},
		{"default dismissed", true, PermissionDefault, PermissionDefault, false, 1},
		{"unsupported", false, PermissionDefault, PermissionGranted, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.perms.supported = tt.supported
			f.perms.current = tt.current
			f.perms.answer = tt.answer

			got, err := f.m.RequestPermission(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPrompts, f.perms.prompts)
		})
	}
}

func TestManager_Init(t *testing.T) {
	t.Run("caches registration once", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.m.Init(context.Background())
		assert.Equal(t, 1, f.workers.calls)
		assert.NotNil(t, f.m.Registration())
	})

	t.Run("unsupported leaves no registration", func(t *testing.T) {
		f := newFixture()
		f.workers.supported = false
		f.m.Init(context.Background())
		assert.Equal(t, 0, f.workers.calls)
		assert.Nil(t, f.m.Registration())
	})

	t.Run("ready failure is swallowed", func(t *testing.T) {
		f := newFixture()
		f.workers.err = errBoom
		f.workers.reg = nil
		f.m.Init(context.Background())
		assert.Nil(t, f.m.Registration())
	})
}

func TestManager_ShowLocalNotification_Presentation(t *testing.T) {
	tests := []struct {
		priority   Priority
		vibrate    []int
		silent     bool
		requireInt bool
	}{
		{PriorityUrgent, []int{200, 100, 200, 100, 200}, false, true},
		{PriorityHigh, []int{200, 100, 200}, false, false},
		{PriorityNormal, []int{200}, false, false},
		{PriorityLow, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			f := newFixture()
			f.m.Init(context.Background())

			_, err := f.m.ShowLocalNotification(context.Background(), Input{
				Title: "Meal Ready", Body: "Lunch", Category: CategoryMealReady, Priority: tt.priority, UserID: "u1",
			})
			require.NoError(t, err)
			require.Len(t, f.reg.shown, 1)

			opts := f.reg.shown[0].opts
			assert.Equal(t, tt.vibrate, opts.Vibrate)
			assert.Equal(t, tt.silent, opts.Silent)
			assert.Equal(t, tt.requireInt, opts.RequireInteraction)
			assert.Equal(t, DefaultIcon, opts.Icon)
			assert.Equal(t, DefaultBadge, opts.Badge)
		})
	}
}

func TestManager_ShowLocalNotification_KeepsSuppliedAssets(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())

	_, err := f.m.ShowLocalNotification(context.Background(), Input{
		Title: "Promo", Icon: "/i.png", Badge: "/b.png", Image: "/banner.png",
		Actions:  []Action{{Action: "open", Title: "Open"}},
		Category: CategoryPromotion, Priority: PriorityNormal, UserID: "u1",
	})
	require.NoError(t, err)
	opts := f.reg.shown[0].opts
	assert.Equal(t, "/i.png", opts.Icon)
	assert.Equal(t, "/b.png", opts.Badge)
	assert.Equal(t, "/banner.png", opts.Image)
	assert.Equal(t, []Action{{Action: "open", Title: "Open"}}, opts.Actions)
}

func TestManager_ShowLocalNotification_NotGranted(t *testing.T) {
	for _, p := range []Permission{PermissionDefault, PermissionDenied} {
		t.Run(string(p), func(t *testing.T) {
			f := newFixture()
			f.perms.current = p
			f.m.Init(context.Background())

			rec, err := f.m.ShowLocalNotification(context.Background(), Input{Title: "x", UserID: "u1"})
			assert.NoError(t, err)
			assert.Nil(t, rec)
			assert.Zero(t, f.store.puts)
			assert.Empty(t, f.reg.shown)
		})
	}
}

func TestManager_ShowLocalNotification_PersistsDespiteDisplayFailure(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())
	f.reg.err = errBoom

	rec, err := f.m.ShowLocalNotification(context.Background(), Input{Title: "Payment Due", UserID: "u1", Priority: PriorityHigh})
	require.ErrorIs(t, err, ErrDisplay)
	assert.ErrorIs(t, err, errBoom, "cause stays matchable")
	require.NotNil(t, rec)

	stored, err := f.store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Read)
}

func TestManager_ShowLocalNotification_FallsBackToBasicDisplay(t *testing.T) {
	f := newFixture()
	f.workers.supported = false
	f.m.Init(context.Background())

	rec, err := f.m.ShowLocalNotification(context.Background(), Input{
		Title: "Reminder", Body: "Mark tomorrow's meals", Tag: "rem",
		Actions:  []Action{{Action: "x", Title: "X"}},
		Category: CategoryReminder, Priority: PriorityUrgent, UserID: "u1",
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, f.reg.shown)
	require.Equal(t, []string{"Reminder"}, f.display.titles)
	assert.Equal(t, BasicOptions{Body: "Mark tomorrow's meals", Icon: DefaultIcon, Tag: "rem"}, f.display.opts[0])
}

func TestManager_ShowLocalNotification_AssignsIdentity(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		now := f.clock.UnixMilli()
		rec, err := f.m.ShowLocalNotification(context.Background(), Input{Title: "t", UserID: "u1", Priority: PriorityNormal})
		require.NoError(t, err)
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
		assert.False(t, rec.Read)
		assert.Equal(t, now, rec.Timestamp)
		f.tick(time.Second)
	}
	assert.Len(t, f.store.records, 5)
}

func TestManager_ShowLocalNotification_DefaultsPriority(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())
	rec, err := f.m.ShowLocalNotification(context.Background(), Input{Title: "t", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, rec.Priority)
	assert.Equal(t, []int{200}, f.reg.shown[0].opts.Vibrate)
}

func seed(t *testing.T, f *fixture, userID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec, err := f.m.ShowLocalNotification(context.Background(), Input{Title: "t", UserID: userID})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		f.tick(time.Millisecond)
	}
	return ids
}

func TestManager_GetNotifications(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())
	u1 := seed(t, f, "u1", 4)
	u2 := seed(t, f, "u2", 3)

	got, err := f.m.GetNotifications(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].Timestamp, got[i].Timestamp)
	}
	assert.Equal(t, u1[3], got[0].ID, "newest first")

	limited, err := f.m.GetNotifications(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{u1[3], u1[2]}, []string{limited[0].ID, limited[1].ID})

	other, err := f.m.GetNotifications(context.Background(), "u2", 50)
	require.NoError(t, err)
	require.Len(t, other, 3)
	for _, r := range other {
		assert.Equal(t, "u2", r.UserID)
		assert.Contains(t, u2, r.ID)
		assert.NotContains(t, u1, r.ID)
	}
}

func TestManager_GetNotifications_DefaultLimit(t *testing.T) {
	f := newFixture()
	seed(t, f, "u1", DefaultLimit+5)
	got, err := f.m.GetNotifications(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestManager_MarkAsRead(t *testing.T) {
	f := newFixture()
	ids := seed(t, f, "u1", 1)

	before, _ := f.store.Get(context.Background(), ids[0])
	puts := f.store.puts

	require.NoError(t, f.m.MarkAsRead(context.Background(), "missing"))
	assert.Equal(t, puts, f.store.puts, "no write for unknown id")

	require.NoError(t, f.m.MarkAsRead(context.Background(), ids[0]))
	after, _ := f.store.Get(context.Background(), ids[0])
	assert.True(t, after.Read)

	after.Read = false
	assert.Equal(t, before, after, "only read changes")
}

func TestManager_MarkAsReadFor_OwnerOnly(t *testing.T) {
	f := newFixture()
	mine := seed(t, f, "u1", 1)
	theirs := seed(t, f, "u2", 1)
	puts := f.store.puts

	ok, err := f.m.MarkAsReadFor(context.Background(), "u1", theirs[0])
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.m.MarkAsReadFor(context.Background(), "u1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, puts, f.store.puts, "no write for foreign or unknown ids")
	other, _ := f.store.Get(context.Background(), theirs[0])
	assert.False(t, other.Read)

	ok, err = f.m.MarkAsReadFor(context.Background(), "u1", mine[0])
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ := f.store.Get(context.Background(), mine[0])
	assert.True(t, got.Read)
}

func TestManager_ClearNotifications_RemovesAll(t *testing.T) {
	f := newFixture()
	seed(t, f, "u1", DefaultLimit+10)
	keep := seed(t, f, "u2", 2)

	n, err := f.m.ClearNotifications(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit+10, n)

	left, err := f.m.GetNotifications(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, left)

	others, err := f.m.GetNotifications(context.Background(), "u2", 0)
	require.NoError(t, err)
	assert.Len(t, others, len(keep))
}

func TestManager_ExampleScenario(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())

	rec, err := f.m.ShowLocalNotification(context.Background(), Input{
		Title: "Meal Ready", Body: "Dinner is served", Category: CategoryMealReady, Priority: PriorityNormal, UserID: "u1",
	})
	require.NoError(t, err)

	list, err := f.m.GetNotifications(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
	assert.Equal(t, *rec, list[0], "stored copy matches what was shown")

	require.NoError(t, f.m.MarkAsRead(context.Background(), rec.ID))
	list, err = f.m.GetNotifications(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.True(t, list[0].Read)
}

func TestManager_SubscribeToPush(t *testing.T) {
	t.Run("requires registration", func(t *testing.T) {
		f := newFixture()
		sub, err := f.m.SubscribeToPush(context.Background())
		assert.Nil(t, sub)
		assert.ErrorIs(t, err, ErrNoRegistration)
		f.registry.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
	})

	t.Run("subscribes and forwards", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.registry.On("Subscribe", mock.Anything, mock.MatchedBy(func(req SubscribeRequest) bool {
			return req.Subscription != nil &&
				req.Subscription.Endpoint == "https://push.example.com/send/abc" &&
				req.UserAgent == "test-agent/1.0" &&
				req.Timestamp.Equal(f.clock)
		})).Return(nil).Once()

		sub, err := f.m.SubscribeToPush(context.Background())
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.True(t, f.push.lastOpts.UserVisibleOnly)
		key, _ := DecodeApplicationServerKey(testVAPIDKey)
		assert.Equal(t, key, f.push.lastOpts.ApplicationServerKey)
		f.registry.AssertExpectations(t)
	})

	t.Run("registry failure keeps subscription", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.registry.On("Subscribe", mock.Anything, mock.Anything).Return(errBoom)

		sub, err := f.m.SubscribeToPush(context.Background())
		require.NoError(t, err)
		require.NotNil(t, sub)
		current, _ := f.push.GetSubscription(context.Background())
		assert.Equal(t, sub, current)
	})

	t.Run("push failure", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.push.subscribeErr = errBoom
		sub, err := f.m.SubscribeToPush(context.Background())
		assert.Nil(t, sub)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestManager_UnsubscribeFromPush(t *testing.T) {
	t.Run("no registration", func(t *testing.T) {
		f := newFixture()
		ok, err := f.m.UnsubscribeFromPush(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nothing to unsubscribe", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		ok, err := f.m.UnsubscribeFromPush(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, f.push.unsubscribed)
	})

	t.Run("tears down and notifies server", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.registry.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
		sub, err := f.m.SubscribeToPush(context.Background())
		require.NoError(t, err)
		f.registry.On("Unsubscribe", mock.Anything, UnsubscribeRequest{Subscription: sub}).Return(errBoom).Once()

		ok, err := f.m.UnsubscribeFromPush(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, f.push.unsubscribed)
		f.registry.AssertExpectations(t)
	})

	t.Run("push manager keeps subscription", func(t *testing.T) {
		f := newFixture()
		f.m.Init(context.Background())
		f.registry.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
		_, err := f.m.SubscribeToPush(context.Background())
		require.NoError(t, err)
		f.push.keep = true

		ok, err := f.m.UnsubscribeFromPush(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		f.registry.AssertNotCalled(t, "Unsubscribe", mock.Anything, mock.Anything)
	})
}

func TestManager_ReconcileSubscription(t *testing.T) {
	f := newFixture()
	f.m.Init(context.Background())
	require.NoError(t, f.m.ReconcileSubscription(context.Background()), "nothing to reconcile")

	f.registry.On("Subscribe", mock.Anything, mock.Anything).Return(nil)
	_, err := f.m.SubscribeToPush(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.m.ReconcileSubscription(context.Background()))
	f.registry.AssertNumberOfCalls(t, "Subscribe", 2)
}
