package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"messmate/internal/models"
	"messmate/internal/notify"

	"gorm.io/datatypes"
)

var ErrInvalidSubscription = errors.New("invalid push subscription")

type SubscriptionStore interface {
	Upsert(s *models.PushSubscription) error
	DeleteByEndpoint(userID uint, endpoint string) (int64, error)
	Purge(endpoint string) error
	ListByUserIDs(userIDs []uint) ([]models.PushSubscription, error)
}

// SubscriptionService is the server-side push subscription registry.
type SubscriptionService struct {
	store SubscriptionStore
}

func NewSubscriptionService(store SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{store: store}
}

func validateSubscription(sub *notify.Subscription) error {
	if sub == nil || sub.Endpoint == "" {
		return ErrInvalidSubscription
	}
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ErrInvalidSubscription
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	return nil
}

// Subscribe stores the subscription for userID. An endpoint already held by
// another user moves to userID.
func (s *SubscriptionService) Subscribe(userID uint, req notify.SubscribeRequest) (*models.PushSubscription, error) {
	if err := validateSubscription(req.Subscription); err != nil {
		return nil, err
	}
	row := &models.PushSubscription{
		UserID:         userID,
		Endpoint:       req.Subscription.Endpoint,
		Keys:           datatypes.NewJSONType(models.PushKeys{P256dh: req.Subscription.Keys.P256dh, Auth: req.Subscription.Keys.Auth}),
		ExpirationTime: req.Subscription.ExpirationTime,
		UserAgent:      req.UserAgent,
	}
	if !req.Timestamp.IsZero() {
		ts := req.Timestamp.UTC()
		row.ClientTimestamp = &ts
	}
	if err := s.store.Upsert(row); err != nil {
		return nil, err
	}
	return row, nil
}

// Unsubscribe reports whether userID held the endpoint.
func (s *SubscriptionService) Unsubscribe(userID uint, req notify.UnsubscribeRequest) (bool, error) {
	if req.Subscription == nil || req.Subscription.Endpoint == "" {
		return false, ErrInvalidSubscription
	}
	n, err := s.store.DeleteByEndpoint(userID, req.Subscription.Endpoint)
	return n > 0, err
}

func (s *SubscriptionService) ForUsers(userIDs []uint) ([]models.PushSubscription, error) {
	return s.store.ListByUserIDs(userIDs)
}

func (s *SubscriptionService) Purge(endpoint string) error {
	return s.store.Purge(endpoint)
}

// ForUser returns a notify.Registry that records subscriptions for userID
// in-process, for device managers running inside this server.
func (s *SubscriptionService) ForUser(userID uint) notify.Registry {
	return userRegistry{svc: s, userID: userID}
}

type userRegistry struct {
	svc    *SubscriptionService
	userID uint
}

func (r userRegistry) Subscribe(ctx context.Context, req notify.SubscribeRequest) error {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	_, err := r.svc.Subscribe(r.userID, req)
	return err
}

func (r userRegistry) Unsubscribe(ctx context.Context, req notify.UnsubscribeRequest) error {
	_, err := r.svc.Unsubscribe(r.userID, req)
	return err
}
