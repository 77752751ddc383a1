// File: database/repository/outbox/interface.go
package outboxRepo

import (
	"context"
	"time"

	"slotify/database"
	"slotify/models"
)

// OutboxRepository persists side-effect intents and drives the event state
// machine. Insert runs inside the producing transaction; everything else runs
// from the dispatcher against the pool.
type OutboxRepository interface {
	Insert(ctx context.Context, tx database.Tx, ev *models.OutboxEvent) error
	// Claim flips up to batch due pending events to processing in one
	// statement, skipping rows locked by other dispatchers and holding back
	// events whose (tenant, aggregate) already has one in flight or an older
	// pending sibling.
	Claim(ctx context.Context, tx database.Tx, batch int, now time.Time) ([]models.OutboxEvent, error)
	MarkCompleted(ctx context.Context, tx database.Tx, id int64, now time.Time) error
	MarkRetry(ctx context.Context, tx database.Tx, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error
	MarkDeadLetter(ctx context.Context, tx database.Tx, id int64, lastErr string, now time.Time) error
	// ReleaseExpiredLeases reclaims events stuck in processing past the lease
	// (crash recovery): they return to pending for the next poll.
	ReleaseExpiredLeases(ctx context.Context, tx database.Tx, cutoff time.Time) (int64, error)
}

// NewPgOutboxRepo constructs the Postgres-backed OutboxRepository.
func NewPgOutboxRepo() OutboxRepository {
	return &pgOutboxRepo{}
}

type pgOutboxRepo struct{}
