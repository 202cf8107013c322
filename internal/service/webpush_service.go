package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"

	"messmate/config"
	"messmate/internal/models"
	"messmate/internal/notify"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/sync/errgroup"
)

const webPushWorkers = 8

type sendFunc func(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// WebPushService delivers VAPID-signed Web Push messages to every registered
// browser subscription of a set of users.
type WebPushService struct {
	cfg  config.PushConfig
	subs *SubscriptionService
	send sendFunc
}

// NewWebPushService returns nil when VAPID keys are not configured.
func NewWebPushService(cfg config.PushConfig, subs *SubscriptionService) *WebPushService {
	if !cfg.Enabled() {
		log.Printf("[push] VAPID keys not configured; web push disabled")
		return nil
	}
	return &WebPushService{cfg: cfg, subs: subs, send: webpush.SendNotificationWithContext}
}

func urgencyFor(p notify.Priority) webpush.Urgency {
	switch p {
	case notify.PriorityUrgent, notify.PriorityHigh:
		return webpush.UrgencyHigh
	case notify.PriorityLow:
		return webpush.UrgencyLow
	default:
		return webpush.UrgencyNormal
	}
}

// SendToUsers pushes in to all subscriptions of userIDs and returns how many
// deliveries the push services accepted. Subscriptions reported gone
// (404/410) are purged.
func (s *WebPushService) SendToUsers(ctx context.Context, userIDs []uint, in notify.Input) (int, error) {
	if s == nil || len(userIDs) == 0 {
		return 0, nil
	}
	subs, err := s.subs.ForUsers(userIDs)
	if err != nil {
		return 0, fmt.Errorf("load subscriptions: %w", err)
	}
	payload := NewPushPayload(in)
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	opts := webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		TTL:             s.cfg.TTL,
		Urgency:         urgencyFor(payload.Priority),
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
	}

	var sent atomic.Int64
	var g errgroup.Group
	g.SetLimit(webPushWorkers)
	for i := range subs {
		sub := subs[i]
		g.Go(func() error {
			o := opts
			if s.deliver(ctx, body, &sub, &o) {
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load()), nil
}

func (s *WebPushService) deliver(ctx context.Context, body []byte, sub *models.PushSubscription, opts *webpush.Options) bool {
	keys := sub.Keys.Data()
	resp, err := s.send(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: keys.P256dh, Auth: keys.Auth},
	}, opts)
	if err != nil {
		log.Printf("[push] send to user %d failed: %v", sub.UserID, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		log.Printf("[push] subscription gone (status %d); removing", resp.StatusCode)
		if err := s.subs.Purge(sub.Endpoint); err != nil {
			log.Printf("[push] purge subscription: %v", err)
		}
		return false
	case resp.StatusCode >= 300:
		log.Printf("[push] push service rejected message for user %d: status %d", sub.UserID, resp.StatusCode)
		return false
	}
	return true
}
