package bookingRepo

import (
	"context"
	"errors"
	"fmt"

	"slotify/database"
	"slotify/models"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, tenant_id, customer_id, service_id, resource_id,
	start_at, end_at, status, total_price, paid, idempotency_key,
	confirmation_code, notes, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.TenantID, &b.CustomerID, &b.ServiceID, &b.ResourceID,
		&b.StartAt, &b.EndAt, &b.Status, &b.TotalPrice, &b.Paid, &b.IdempotencyKey,
		&b.ConfirmationCode, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

func (r *pgBookingRepo) GetByID(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
}

func (r *pgBookingRepo) LockBooking(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, id))
}

func (r *pgBookingRepo) ItemsForBooking(ctx context.Context, tx database.Tx, bookingID int64) ([]models.BookingItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, booking_id, slot_id, resource_id, start_at
		FROM booking_items
		WHERE booking_id = $1
		ORDER BY start_at ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("items for booking %d: %w", bookingID, err)
	}
	defer rows.Close()

	var items []models.BookingItem
	for rows.Next() {
		var it models.BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.SlotID, &it.ResourceID, &it.StartAt); err != nil {
			return nil, fmt.Errorf("scan booking item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgBookingRepo) UpdateStatus(ctx context.Context, tx database.Tx, id int64, status models.BookingStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update booking %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgBookingRepo) SetConfirmationCode(ctx context.Context, tx database.Tx, id int64, code string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET confirmation_code = $2 WHERE id = $1
	`, id, code)
	if err != nil {
		return fmt.Errorf("set booking %d confirmation code: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgBookingRepo) MarkPaid(ctx context.Context, tx database.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET paid = TRUE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark booking %d paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
