package bookingRepo

import (
	"context"
	"errors"
	"fmt"

	"slotify/database"
	"slotify/models"

	"github.com/jackc/pgx/v5"
)

func (r *pgBookingRepo) CreateCustomer(ctx context.Context, tx database.Tx, c *models.Customer) (int64, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, name, phone, email, chat_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.TenantID, c.Name, c.Phone, c.Email, c.ChatUserID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return c.ID, nil
}

func (r *pgBookingRepo) GetCustomer(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Customer, error) {
	var c models.Customer
	err := tx.QueryRow(ctx, `
		SELECT id, tenant_id, name, phone, email, chat_user_id, created_at
		FROM customers
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.ChatUserID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return &c, nil
}

func (r *pgBookingRepo) CreateBooking(ctx context.Context, tx database.Tx, b *models.Booking) (int64, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings (tenant_id, customer_id, service_id, resource_id,
			start_at, end_at, status, total_price, idempotency_key, confirmation_code, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, b.TenantID, b.CustomerID, b.ServiceID, b.ResourceID,
		b.StartAt, b.EndAt, b.Status, b.TotalPrice, b.IdempotencyKey,
		b.ConfirmationCode, b.Notes).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return b.ID, nil
}

func (r *pgBookingRepo) CreateItems(ctx context.Context, tx database.Tx, items []models.BookingItem) error {
	for i := range items {
		it := &items[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO booking_items (booking_id, slot_id, resource_id, start_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, it.BookingID, it.SlotID, it.ResourceID, it.StartAt).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert booking item for slot %d: %w", it.SlotID, err)
		}
	}
	return nil
}

func (r *pgBookingRepo) CreateCancellation(ctx context.Context, tx database.Tx, c *models.BookingCancellation) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO booking_cancellations (booking_id, reason, cancelled_by)
		VALUES ($1, $2, $3)
		RETURNING id, cancelled_at
	`, c.BookingID, c.Reason, c.CancelledBy).Scan(&c.ID, &c.CancelledAt)
	if err != nil {
		return fmt.Errorf("insert cancellation for booking %d: %w", c.BookingID, err)
	}
	return nil
}
