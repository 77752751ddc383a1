package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	"slotify/models"

	"github.com/google/uuid"
)

// CancelBooking is symmetric to creation: lock the booking row, then its
// items' slots in the same ascending start order, restore one capacity unit
// per slot and emit BOOKING_CANCELLED in the same transaction.
func (c *DefaultCoordinator) CancelBooking(ctx context.Context, tenantID, bookingID int64, in models.CancelInput) (*models.Booking, error) {
	var result *models.Booking
	var resourceID int64
	var from, to time.Time

	err := c.DB.WithinTx(ctx, func(tx database.Tx) error {
		bk, err := c.Bookings.LockBooking(ctx, tx, tenantID, bookingID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return NewError(CodeBookingNotFound, "booking %d not found", bookingID)
		}
		if err != nil {
			return err
		}

		switch bk.Status {
		case models.BookingCancelled:
			// Cancelling twice is a no-op, not an error.
			result = bk
			return nil
		case models.BookingConfirmed, models.BookingTentative:
		default:
			return NewError(CodeValidationFailed, "booking in status %q cannot be cancelled", bk.Status)
		}

		tenant, err := c.Catalog.GetTenant(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		now := c.now()
		if cutoff := tenant.CancelCutoffMin; cutoff > 0 {
			if now.After(bk.StartAt.Add(-time.Duration(cutoff) * time.Minute)) {
				return NewError(CodeCancelCutoffElapsed,
					"cancellation window closed %d minutes before start", cutoff)
			}
		}

		items, err := c.Bookings.ItemsForBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		slotIDs := make([]int64, len(items))
		for i, it := range items {
			slotIDs[i] = it.SlotID
		}

		// Same deterministic order as creation.
		if _, err := c.Slots.LockByIDs(ctx, tx, tenantID, slotIDs); err != nil {
			return err
		}
		if err := c.Slots.IncrementCapacity(ctx, tx, slotIDs); err != nil {
			return err
		}

		if err := c.Bookings.UpdateStatus(ctx, tx, bookingID, models.BookingCancelled); err != nil {
			return err
		}
		cancelledBy := in.CancelledBy
		if cancelledBy == "" {
			cancelledBy = "customer"
		}
		if err := c.Bookings.CreateCancellation(ctx, tx, &models.BookingCancellation{
			BookingID:   bookingID,
			Reason:      in.Reason,
			CancelledBy: cancelledBy,
		}); err != nil {
			return err
		}

		customer, err := c.Bookings.GetCustomer(ctx, tx, tenantID, bk.CustomerID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(models.BookingEventPayload{
			BookingID:        bk.ID,
			TenantID:         tenantID,
			ConfirmationCode: bk.ConfirmationCode,
			StartAt:          bk.StartAt,
			EndAt:            bk.EndAt,
			Customer:         *customer,
		})
		if err != nil {
			return err
		}
		if err := c.Outbox.Insert(ctx, tx, &models.OutboxEvent{
			TenantID:      tenantID,
			AggregateID:   bk.ID,
			EventType:     models.EventBookingCancelled,
			Payload:       payload,
			NextAttemptAt: now,
			TraceID:       uuid.New().String(),
		}); err != nil {
			return err
		}

		bk.Status = models.BookingCancelled
		result = bk
		resourceID, from, to = bk.ResourceID, bk.StartAt, bk.EndAt
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrTxRetryExhausted) {
			return nil, NewError(CodeConflictRetryExhausted, "could not cancel booking under contention, please retry")
		}
		return nil, err
	}

	if c.Cache != nil && resourceID != 0 {
		c.Cache.InvalidateWindow(context.Background(), tenantID, resourceID, from, to)
	}
	return result, nil
}

// GetBooking reads a booking with its items and customer.
func (c *DefaultCoordinator) GetBooking(ctx context.Context, tenantID, bookingID int64) (*models.BookingResponse, error) {
	bk, err := c.Bookings.GetByID(ctx, c.Q, tenantID, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, NewError(CodeBookingNotFound, "booking %d not found", bookingID)
	}
	if err != nil {
		return nil, err
	}
	items, err := c.Bookings.ItemsForBooking(ctx, c.Q, bookingID)
	if err != nil {
		return nil, err
	}
	customer, err := c.Bookings.GetCustomer(ctx, c.Q, tenantID, bk.CustomerID)
	if err != nil {
		return nil, err
	}
	return &models.BookingResponse{Booking: *bk, Items: items, Customer: *customer}, nil
}
