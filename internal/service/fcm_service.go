package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"messmate/config"
	"messmate/internal/notify"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMService sends push notifications to mobile app tokens via Firebase Cloud Messaging.
type FCMService struct {
	client fcmSender
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(cfg config.FirebaseConfig) *FCMService {
	if !cfg.Enabled() {
		return nil
	}
	ctx := context.Background()
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		log.Printf("[FCM] Failed to init Firebase app: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("[FCM] Failed to get Messaging client: %v", err)
		return nil
	}
	return &FCMService{client: client}
}

// flattenData converts the JSON object in data to FCM's string map. Nested
// values are re-encoded as JSON; a non-object is kept under "data".
func flattenData(data json.RawMessage) map[string]string {
	out := make(map[string]string)
	if len(data) == 0 {
		return out
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		out["data"] = string(data)
		return out
	}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = fmt.Sprintf("%v", val)
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		case nil:
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}

func buildFCMMessage(token string, in notify.Input) *messaging.Message {
	p := NewPushPayload(in)
	data := flattenData(p.Data)
	data["category"] = string(p.Category)
	data["priority"] = string(p.Priority)
	if p.Tag != "" {
		data["tag"] = p.Tag
	}

	androidPriority := "normal"
	apnsPriority := "5"
	if p.Priority == notify.PriorityHigh || p.Priority == notify.PriorityUrgent {
		androidPriority = "high"
		apnsPriority = "10"
	}
	aps := &messaging.Aps{}
	if !p.Silent {
		aps.Sound = "default"
	}
	androidNote := &messaging.AndroidNotification{Tag: p.Tag, Icon: p.Icon}
	if !p.Silent {
		androidNote.Sound = "default"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title:    p.Title,
			Body:     p.Body,
			ImageURL: p.Image,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority:     androidPriority,
			Notification: androidNote,
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{Aps: aps},
		},
	}
}

// Send pushes in to a single device token. A nil service or empty token is a no-op.
func (s *FCMService) Send(ctx context.Context, token string, in notify.Input) error {
	if s == nil || token == "" {
		return nil
	}
	_, err := s.client.Send(ctx, buildFCMMessage(token, in))
	if err != nil {
		log.Printf("[FCM] Send error: %v", err)
		return err
	}
	return nil
}
