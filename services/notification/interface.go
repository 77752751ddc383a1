// File: services/notification/interface.go
package notification

import (
	"context"
	"fmt"

	"slotify/models"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sender delivers one message over a channel (email, sms, chat). Wire real
// providers here; the engine only needs the contract.
type Sender interface {
	Send(ctx context.Context, channel, recipient, title, body string) error
}

// NotificationService turns booking events into customer-facing messages and
// scheduled reminders.
type NotificationService interface {
	SendConfirmation(ctx context.Context, p models.BookingEventPayload) error
	SendCancellation(ctx context.Context, p models.BookingEventPayload) error
	ScheduleReminders(ctx context.Context, p models.BookingEventPayload) error
	RevokeReminders(ctx context.Context, tenantID, bookingID int64) error
	Deliver(ctx context.Context, p models.NotificationRequestPayload) error
}

// DefaultNotificationService is the production implementation. Reminders go
// through asynq; cancellations leave a redis tombstone the reminder worker
// checks before sending.
type DefaultNotificationService struct {
	Sender Sender
	Tasks  *asynq.Client
	Redis  *redis.Client
	Logger *zap.Logger
}

func NewDefaultNotificationService(sender Sender, tasks *asynq.Client, rdb *redis.Client, logger *zap.Logger) (*DefaultNotificationService, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification service initialization error: sender is nil")
	}
	return &DefaultNotificationService{Sender: sender, Tasks: tasks, Redis: rdb, Logger: logger}, nil
}

// LogSender is the fallback sink: it logs instead of delivering. Useful in
// development and as a default until a provider is configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(ctx context.Context, channel, recipient, title, body string) error {
	s.Logger.Info("notification delivered to log sink",
		zap.String("channel", channel),
		zap.String("recipient", recipient),
		zap.String("title", title))
	return nil
}
