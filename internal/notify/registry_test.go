package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRegistry_Subscribe(t *testing.T) {
	var got SubscribeRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SubscribePath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL+"/", func(ctx context.Context) (string, error) { return "tok", nil }, nil)
	ts := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	err := reg.Subscribe(context.Background(), SubscribeRequest{
		Subscription: &Subscription{Endpoint: "https://push.example.com/x", Keys: SubscriptionKeys{P256dh: "k", Auth: "a"}},
		UserAgent:    "ua",
		Timestamp:    ts,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "https://push.example.com/x", got.Subscription.Endpoint)
	assert.Equal(t, "ua", got.UserAgent)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestHTTPRegistry_Unsubscribe_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UnsubscribePath, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, nil, nil)
	err := reg.Unsubscribe(context.Background(), UnsubscribeRequest{Subscription: &Subscription{Endpoint: "e"}})
	assert.ErrorContains(t, err, "status 500")
}

func TestSubscriptionJSONShape(t *testing.T) {
	raw := `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc","expirationTime":null,"keys":{"p256dh":"BNc","auth":"tBH"}}`
	var sub Subscription
	require.NoError(t, json.Unmarshal([]byte(raw), &sub))
	assert.Nil(t, sub.ExpirationTime)
	assert.Equal(t, "BNc", sub.Keys.P256dh)

	out, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
