package services

import (
	"context"
	"log/slog"

	"firebase.google.com/go/messaging"
)

// Notifier is the fire-and-forget notification capability consumed by the
// payment core. Failures are logged and never abort a cascade.
type Notifier interface {
	Notify(ctx context.Context, fcmToken, title, body string, data map[string]string)
}

// NotificationService delivers push notifications through FCM.
type NotificationService struct {
	Client *messaging.Client
	Logger *slog.Logger
}

func (s *NotificationService) Notify(ctx context.Context, fcmToken, title, body string, data map[string]string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if s.Client == nil || fcmToken == "" {
		logger.Debug("notification skipped", "title", title, "has_token", fcmToken != "")
		return
	}
	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
		},
	}
	if _, err := s.Client.Send(ctx, msg); err != nil {
		logger.Error("send notification failed", "title", title, "err", err)
	}
}
