package timeslotRepo

import (
	"context"
	"fmt"
	"time"

	"slotify/database"
	"slotify/models"
)

func (r *pgTimeSlotRepo) ExistingForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, available_capacity
		FROM timeslots
		WHERE tenant_id = $1 AND resource_id = $2 AND start_at >= $3 AND start_at < $4
		ORDER BY start_at ASC
	`, tenantID, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("existing slots: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}

// CreateMany inserts new slot rows. ON CONFLICT DO NOTHING keeps a concurrent
// recompile of the same window from failing on the unique key.
func (r *pgTimeSlotRepo) CreateMany(ctx context.Context, tx database.Tx, slots []models.Slot) error {
	for _, s := range slots {
		if _, err := tx.Exec(ctx, `
			INSERT INTO timeslots (tenant_id, resource_id, start_at, end_at, available_capacity)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, resource_id, start_at) DO NOTHING
		`, s.TenantID, s.ResourceID, s.StartAt, s.EndAt, s.AvailableCapacity); err != nil {
			return fmt.Errorf("insert slot at %s: %w", s.StartAt, err)
		}
	}
	return nil
}

func (r *pgTimeSlotRepo) SetCapacity(ctx context.Context, tx database.Tx, id int64, capacity int) error {
	if _, err := tx.Exec(ctx, `
		UPDATE timeslots SET available_capacity = $2 WHERE id = $1
	`, id, capacity); err != nil {
		return fmt.Errorf("set slot %d capacity: %w", id, err)
	}
	return nil
}

func (r *pgTimeSlotRepo) DeleteIfUntouched(ctx context.Context, tx database.Tx, id int64, fullCapacity int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM timeslots
		WHERE id = $1 AND available_capacity = $2
	`, id, fullCapacity)
	if err != nil {
		return false, fmt.Errorf("delete slot %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgTimeSlotRepo) BookedUnits(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) (map[int64]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT bi.slot_id, COUNT(*)
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.resource_id = $1 AND bi.start_at >= $2 AND bi.start_at < $3
		  AND b.status IN ('tentative', 'confirmed')
		GROUP BY bi.slot_id
	`, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("booked units: %w", err)
	}
	defer rows.Close()

	booked := make(map[int64]int)
	for rows.Next() {
		var slotID int64
		var count int
		if err := rows.Scan(&slotID, &count); err != nil {
			return nil, fmt.Errorf("scan booked units: %w", err)
		}
		booked[slotID] = count
	}
	return booked, rows.Err()
}

func (r *pgTimeSlotRepo) OpenSlotsInWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, available_capacity
		FROM timeslots
		WHERE tenant_id = $1 AND resource_id = $2
		  AND start_at >= $3 AND start_at < $4
		  AND available_capacity >= 1
		ORDER BY start_at ASC
	`, tenantID, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("open slots in window: %w", err)
	}
	defer rows.Close()
	return scanSlots(rows)
}
