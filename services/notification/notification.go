// File: services/notification/notification.go
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotify/models"
	"slotify/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const tombstoneTTL = 30 * 24 * time.Hour

func tombstoneKey(tenantID, bookingID int64) string {
	return fmt.Sprintf("reminder:tombstone:%d:%d", tenantID, bookingID)
}

// SendConfirmation delivers the booking confirmation over the customer's best
// channel.
func (s *DefaultNotificationService) SendConfirmation(ctx context.Context, p models.BookingEventPayload) error {
	channel, recipient := preferredChannel(p.Customer)
	if recipient == "" {
		s.Logger.Warn("booking has no reachable contact, skipping confirmation",
			zap.Int64("booking_id", p.BookingID))
		return nil
	}
	title := "Booking confirmed"
	body := fmt.Sprintf("Your booking %s is confirmed for %s.",
		p.ConfirmationCode, p.StartAt.Format(time.RFC1123))
	if err := s.Sender.Send(ctx, channel, recipient, title, body); err != nil {
		return fmt.Errorf("send confirmation for booking %d: %w", p.BookingID, err)
	}
	return nil
}

// SendCancellation notifies the customer their booking was cancelled.
func (s *DefaultNotificationService) SendCancellation(ctx context.Context, p models.BookingEventPayload) error {
	channel, recipient := preferredChannel(p.Customer)
	if recipient == "" {
		return nil
	}
	title := "Booking cancelled"
	body := fmt.Sprintf("Your booking %s for %s has been cancelled.",
		p.ConfirmationCode, p.StartAt.Format(time.RFC1123))
	if err := s.Sender.Send(ctx, channel, recipient, title, body); err != nil {
		return fmt.Errorf("send cancellation for booking %d: %w", p.BookingID, err)
	}
	return nil
}

// ScheduleReminders enqueues one asynq task per reminder time. Deterministic
// task IDs make redelivery of the same event idempotent.
func (s *DefaultNotificationService) ScheduleReminders(ctx context.Context, p models.BookingEventPayload) error {
	if s.Tasks == nil || len(p.ReminderTimes) == 0 {
		return nil
	}
	channel, recipient := preferredChannel(p.Customer)
	if recipient == "" {
		return nil
	}

	for i, at := range p.ReminderTimes {
		payload := models.ReminderPayload{
			BookingID:        p.BookingID,
			TenantID:         p.TenantID,
			ConfirmationCode: p.ConfirmationCode,
			FireAt:           at.UTC().Format(time.RFC3339),
			Title:            "Upcoming booking",
			Body: fmt.Sprintf("Reminder: booking %s starts at %s.",
				p.ConfirmationCode, p.StartAt.Format(time.RFC1123)),
			Channel:   channel,
			Recipient: recipient,
		}
		task, opts, err := tasks.NewReminderTask(payload, i)
		if err != nil {
			return err
		}
		if _, err := s.Tasks.EnqueueContext(ctx, task, opts...); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			return fmt.Errorf("enqueue reminder %d for booking %d: %w", i, p.BookingID, err)
		}
	}
	return nil
}

// RevokeReminders tombstones the booking so already-enqueued reminders are
// dropped by the worker instead of firing after a cancellation.
func (s *DefaultNotificationService) RevokeReminders(ctx context.Context, tenantID, bookingID int64) error {
	if s.Redis == nil {
		return nil
	}
	if err := s.Redis.Set(ctx, tombstoneKey(tenantID, bookingID), "1", tombstoneTTL).Err(); err != nil {
		return fmt.Errorf("tombstone reminders for booking %d: %w", bookingID, err)
	}
	return nil
}

// RemindersRevoked is checked by the reminder worker before sending.
func (s *DefaultNotificationService) RemindersRevoked(ctx context.Context, tenantID, bookingID int64) bool {
	if s.Redis == nil {
		return false
	}
	n, err := s.Redis.Exists(ctx, tombstoneKey(tenantID, bookingID)).Result()
	if err != nil {
		s.Logger.Warn("tombstone check failed, sending anyway",
			zap.Int64("booking_id", bookingID), zap.Error(err))
		return false
	}
	return n > 0
}

// Deliver handles ad-hoc NOTIFICATION_REQUESTED messages.
func (s *DefaultNotificationService) Deliver(ctx context.Context, p models.NotificationRequestPayload) error {
	if p.Recipient == "" || p.Channel == "" {
		return fmt.Errorf("notification request missing channel or recipient")
	}
	return s.Sender.Send(ctx, p.Channel, p.Recipient, p.Title, p.Body)
}

// preferredChannel picks email, then sms, then chat.
func preferredChannel(c models.Customer) (channel, recipient string) {
	switch {
	case c.Email != "":
		return "email", c.Email
	case c.Phone != "":
		return "sms", c.Phone
	case c.ChatUserID != "":
		return "chat", c.ChatUserID
	default:
		return "", ""
	}
}
