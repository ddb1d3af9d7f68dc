package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService sends push notifications via Firebase Cloud Messaging. A nil
// *FCMService is valid and sends nothing.
type FCMService struct {
	client *messaging.Client
	log    *slog.Logger
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(serviceAccountPath string, logger *slog.Logger) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Error("[FCM] failed to init Firebase app", "error", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Error("[FCM] failed to get messaging client", "error", err)
		return nil
	}
	return &FCMService{client: client, log: logger}
}

func (s *FCMService) message(title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// Send sends a push notification to the given FCM token.
func (s *FCMService) Send(ctx context.Context, token string, title, body string, data map[string]string) error {
	if s == nil || token == "" {
		return nil
	}
	msg := s.message(title, body, data)
	msg.Token = token
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn("[FCM] send error", "error", err)
		return err
	}
	return nil
}

// SendToTopic pushes to every device subscribed to topic.
func (s *FCMService) SendToTopic(ctx context.Context, topic string, title, body string, data map[string]string) error {
	if s == nil || topic == "" {
		return nil
	}
	msg := s.message(title, body, data)
	msg.Topic = topic
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn("[FCM] topic send error", "topic", topic, "error", err)
		return err
	}
	return nil
}

// SendToUser sends a push by FCM token, stringifying data values as FCM requires.
func (s *FCMService) SendToUser(ctx context.Context, fcmToken string, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || fcmToken == "" {
		return nil
	}
	return s.Send(ctx, fcmToken, title, body, stringifyData(notifType, data))
}

func stringifyData(notifType string, data map[string]interface{}) map[string]string {
	out := map[string]string{"type": notifType}
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int, int64, uint:
			out[k] = fmt.Sprintf("%d", val)
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}
