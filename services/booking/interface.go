package booking

import (
	"context"
	"time"

	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	catalogRepo "slotify/database/repository/catalog"
	idempotencyRepo "slotify/database/repository/idempotency"
	outboxRepo "slotify/database/repository/outbox"
	timeslotRepo "slotify/database/repository/timeslot"
	"slotify/models"

	"go.uber.org/zap"
)

// CreateRequest carries a public create-booking call into the coordinator.
// RawBody is the request body as received; its canonicalized SHA-256 is the
// idempotency fingerprint.
type CreateRequest struct {
	Input          models.BookingInput
	IdempotencyKey string
	RawBody        []byte
}

// CreateResult is the serialized outcome of a create attempt. Body is the
// exact JSON stored on the idempotency record, so replays are byte-identical.
type CreateResult struct {
	StatusCode int
	Body       []byte
	Replayed   bool

	// invalidate drops the affected availability cache window; deferred to
	// after commit so readers never cache state the transaction then rolls
	// back.
	invalidate func()
}

// CacheInvalidator drops cached availability for a (tenant, resource) window
// after a commit touches it.
type CacheInvalidator interface {
	InvalidateWindow(ctx context.Context, tenantID, resourceID int64, from, to time.Time)
}

// CoordinatorService is the booking engine's public contract.
type CoordinatorService interface {
	CreateBooking(ctx context.Context, req CreateRequest) (*CreateResult, error)
	CancelBooking(ctx context.Context, tenantID, bookingID int64, in models.CancelInput) (*models.Booking, error)
	GetBooking(ctx context.Context, tenantID, bookingID int64) (*models.BookingResponse, error)
}

// DefaultCoordinator validates, aligns, locks, decrements, persists and emits
// in one database transaction per attempt.
type DefaultCoordinator struct {
	DB       database.TxRunner
	Q        database.Tx // pool querier for plain reads
	Catalog  catalogRepo.CatalogRepository
	Slots    timeslotRepo.TimeSlotRepository
	Bookings bookingRepo.BookingRepository
	Idem     idempotencyRepo.IdempotencyRepository
	Outbox   outboxRepo.OutboxRepository
	Cache    CacheInvalidator
	Logger   *zap.Logger
	IdemTTL  time.Duration
	Now      func() time.Time

	// MaxDurationMin caps booking duration for tenants that do not set their
	// own limit.
	MaxDurationMin int
}

func (c *DefaultCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
