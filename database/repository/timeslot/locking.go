package timeslotRepo

import (
	"context"
	"fmt"
	"time"

	"slotify/database"
	"slotify/models"

	"github.com/jackc/pgx/v5"
)

// LockSequence acquires row locks on the requested start times. Missing rows
// simply do not appear in the result; the coordinator decides whether that is
// a hole or a missing boundary.
func (r *pgTimeSlotRepo) LockSequence(ctx context.Context, tx database.Tx, tenantID, resourceID int64, starts []time.Time) ([]models.Slot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, available_capacity
		FROM timeslots
		WHERE tenant_id = $1 AND resource_id = $2 AND start_at = ANY($3)
		ORDER BY start_at ASC
		FOR UPDATE
	`, tenantID, resourceID, starts)
	if err != nil {
		return nil, fmt.Errorf("lock slot sequence: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (r *pgTimeSlotRepo) LockByIDs(ctx context.Context, tx database.Tx, tenantID int64, ids []int64) ([]models.Slot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, available_capacity
		FROM timeslots
		WHERE tenant_id = $1 AND id = ANY($2)
		ORDER BY start_at ASC
		FOR UPDATE
	`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("lock slots by id: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// LockForWindow locks every slot row in [from, to) for the reconciler.
// Ordered by start_at like the other locked reads, so it cannot deadlock
// against a booking locking a sequence inside the same window.
func (r *pgTimeSlotRepo) LockForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, available_capacity
		FROM timeslots
		WHERE tenant_id = $1 AND resource_id = $2 AND start_at >= $3 AND start_at < $4
		ORDER BY start_at ASC
		FOR UPDATE
	`, tenantID, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("lock slots for window: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// DecrementCapacity is the guarded decrement: the available_capacity >= 1
// predicate re-checks under the lock, so rows_affected < len(ids) means a
// slot sold out between the read and the write.
func (r *pgTimeSlotRepo) DecrementCapacity(ctx context.Context, tx database.Tx, ids []int64) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE timeslots
		SET available_capacity = available_capacity - 1
		WHERE id = ANY($1) AND available_capacity >= 1
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("decrement capacity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTimeSlotRepo) IncrementCapacity(ctx context.Context, tx database.Tx, ids []int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE timeslots
		SET available_capacity = available_capacity + 1
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("increment capacity: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("increment capacity: expected %d rows, got %d", len(ids), tag.RowsAffected())
	}
	return nil
}

func scanSlots(rows pgx.Rows) ([]models.Slot, error) {
	var out []models.Slot
	for rows.Next() {
		var s models.Slot
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ResourceID, &s.StartAt, &s.EndAt, &s.AvailableCapacity); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
