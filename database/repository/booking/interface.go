// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"

	"slotify/database"
	"slotify/models"
)

// ErrNotFound is returned when a booking or customer row does not exist.
var ErrNotFound = errors.New("booking: not found")

// BookingRepository persists bookings, their items, cancellations and the
// customers they belong to.
type BookingRepository interface {
	CreateCustomer(ctx context.Context, tx database.Tx, c *models.Customer) (int64, error)
	GetCustomer(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Customer, error)

	CreateBooking(ctx context.Context, tx database.Tx, b *models.Booking) (int64, error)
	CreateItems(ctx context.Context, tx database.Tx, items []models.BookingItem) error
	GetByID(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error)
	// LockBooking takes the booking row lock; cancellation locks the booking
	// before its slots, same order as creation.
	LockBooking(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error)
	ItemsForBooking(ctx context.Context, tx database.Tx, bookingID int64) ([]models.BookingItem, error)
	UpdateStatus(ctx context.Context, tx database.Tx, id int64, status models.BookingStatus) error
	// SetConfirmationCode stores the code derived from the generated id and
	// creation instant; runs in the same transaction as the insert.
	SetConfirmationCode(ctx context.Context, tx database.Tx, id int64, code string) error
	MarkPaid(ctx context.Context, tx database.Tx, id int64) error
	CreateCancellation(ctx context.Context, tx database.Tx, c *models.BookingCancellation) error
}

// NewPgBookingRepo constructs the Postgres-backed BookingRepository.
func NewPgBookingRepo() BookingRepository {
	return &pgBookingRepo{}
}

type pgBookingRepo struct{}
