// File: services/notification/handlers.go
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"slotify/models"
	"slotify/services/outbox"
)

// RegisterHandlers binds the notification side effects to their event types.
// Malformed payloads are permanent failures; redelivering them cannot help.
func RegisterHandlers(r *outbox.Registry, svc NotificationService) {
	r.RegisterFunc(models.EventBookingCreated, func(ctx context.Context, ev models.OutboxEvent) error {
		p, err := bookingPayload(ev)
		if err != nil {
			return err
		}
		return svc.ScheduleReminders(ctx, p)
	})

	r.RegisterFunc(models.EventBookingConfirmed, func(ctx context.Context, ev models.OutboxEvent) error {
		p, err := bookingPayload(ev)
		if err != nil {
			return err
		}
		return svc.SendConfirmation(ctx, p)
	})

	r.RegisterFunc(models.EventBookingCancelled, func(ctx context.Context, ev models.OutboxEvent) error {
		p, err := bookingPayload(ev)
		if err != nil {
			return err
		}
		if err := svc.RevokeReminders(ctx, p.TenantID, p.BookingID); err != nil {
			return err
		}
		return svc.SendCancellation(ctx, p)
	})

	r.RegisterFunc(models.EventNotificationRequest, func(ctx context.Context, ev models.OutboxEvent) error {
		var p models.NotificationRequestPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return outbox.Permanent(fmt.Errorf("decode notification request %d: %w", ev.ID, err))
		}
		return svc.Deliver(ctx, p)
	})
}

func bookingPayload(ev models.OutboxEvent) (models.BookingEventPayload, error) {
	var p models.BookingEventPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return p, outbox.Permanent(fmt.Errorf("decode booking event %d: %w", ev.ID, err))
	}
	return p, nil
}
