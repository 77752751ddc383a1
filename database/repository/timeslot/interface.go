// File: database/repository/timeslot/interface.go
package timeslotRepo

import (
	"context"
	"time"

	"slotify/database"
	"slotify/models"
)

// TimeSlotRepository is the slot store: durable per-(tenant, resource,
// start_at) rows carrying remaining capacity. Locked reads and the guarded
// decrement are the engine's only capacity mutation paths besides the
// schedule compiler.
type TimeSlotRepository interface {
	// LockSequence fetches the slots at exactly the given start times with
	// FOR UPDATE, ordered by start_at ascending. Deterministic order across
	// all callers prevents ABBA deadlocks between overlapping ranges.
	LockSequence(ctx context.Context, tx database.Tx, tenantID, resourceID int64, starts []time.Time) ([]models.Slot, error)
	// LockByIDs locks explicit slot ids, also ordered by start_at.
	LockByIDs(ctx context.Context, tx database.Tx, tenantID int64, ids []int64) ([]models.Slot, error)
	// DecrementCapacity applies the guarded decrement and returns rows
	// affected; the caller asserts it equals the number of ids.
	DecrementCapacity(ctx context.Context, tx database.Tx, ids []int64) (int64, error)
	// IncrementCapacity restores one unit per slot on cancellation.
	IncrementCapacity(ctx context.Context, tx database.Tx, ids []int64) error

	// Reconciliation primitives used by the schedule compiler.
	ExistingForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error)
	// LockForWindow is ExistingForWindow with FOR UPDATE: the compiler locks
	// a day's rows before resizing or deleting, so a concurrent booking
	// cannot decrement between the read and the write.
	LockForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error)
	CreateMany(ctx context.Context, tx database.Tx, slots []models.Slot) error
	SetCapacity(ctx context.Context, tx database.Tx, id int64, capacity int) error
	// DeleteIfUntouched removes a slot only while its capacity is still the
	// full resource capacity; returns false when bookings hold units.
	DeleteIfUntouched(ctx context.Context, tx database.Tx, id int64, fullCapacity int) (bool, error)
	// BookedUnits counts live booking holds per slot in the window, so the
	// compiler can resize capacity without guessing from available_capacity.
	BookedUnits(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) (map[int64]int, error)

	// OpenSlotsInWindow lists slots with remaining capacity for the advisory
	// availability scan, ordered by start_at.
	OpenSlotsInWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error)
}

// NewPgTimeSlotRepo constructs the Postgres-backed TimeSlotRepository.
func NewPgTimeSlotRepo() TimeSlotRepository {
	return &pgTimeSlotRepo{}
}

type pgTimeSlotRepo struct{}
