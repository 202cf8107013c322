package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	SubscribePath   = "/api/notifications/subscribe"
	UnsubscribePath = "/api/notifications/unsubscribe"
)

// SubscribeRequest is the body sent to the registry after a successful subscribe.
type SubscribeRequest struct {
	Subscription *Subscription `json:"subscription" binding:"required"`
	UserAgent    string        `json:"userAgent"`
	Timestamp    time.Time     `json:"timestamp"`
}

type UnsubscribeRequest struct {
	Subscription *Subscription `json:"subscription" binding:"required"`
}

// Registry mirrors subscription existence to the application server.
type Registry interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
	Unsubscribe(ctx context.Context, req UnsubscribeRequest) error
}

// TokenSource returns the bearer token to present to the registry.
type TokenSource func(ctx context.Context) (string, error)

// HTTPRegistry posts subscription changes to a remote application server.
type HTTPRegistry struct {
	BaseURL string
	token   TokenSource
	client  *http.Client
}

func NewHTTPRegistry(baseURL string, token TokenSource, client *http.Client) *HTTPRegistry {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPRegistry{
		BaseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (r *HTTPRegistry) Subscribe(ctx context.Context, req SubscribeRequest) error {
	return r.post(ctx, SubscribePath, req)
}

func (r *HTTPRegistry) Unsubscribe(ctx context.Context, req UnsubscribeRequest) error {
	return r.post(ctx, UnsubscribePath, req)
}

func (r *HTTPRegistry) post(ctx context.Context, path string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != nil {
		tok, err := r.token(ctx)
		if err != nil {
			return fmt.Errorf("registry token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("registry %s: status %d", path, resp.StatusCode)
	}
	return nil
}
