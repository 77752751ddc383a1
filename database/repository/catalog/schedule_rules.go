package catalogRepo

import (
	"context"
	"fmt"
	"time"

	"slotify/database"
	"slotify/models"
)

func (r *pgCatalogRepo) BusinessHours(ctx context.Context, tx database.Tx, tenantID int64) ([]models.BusinessHour, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, weekday, open_min, close_min, effective_from, effective_to
		FROM business_hours
		WHERE tenant_id = $1
		ORDER BY weekday, open_min
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("business hours for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var out []models.BusinessHour
	for rows.Next() {
		var bh models.BusinessHour
		if err := rows.Scan(&bh.ID, &bh.TenantID, &bh.Weekday, &bh.OpenMin, &bh.CloseMin,
			&bh.EffectiveFrom, &bh.EffectiveTo); err != nil {
			return nil, fmt.Errorf("scan business hour: %w", err)
		}
		out = append(out, bh)
	}
	return out, rows.Err()
}

func (r *pgCatalogRepo) Holidays(ctx context.Context, tx database.Tx, tenantID int64, from, to string) ([]models.Holiday, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, to_char(date, 'YYYY-MM-DD'), name
		FROM holidays
		WHERE tenant_id = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date
	`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("holidays for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var out []models.Holiday
	for rows.Next() {
		var h models.Holiday
		if err := rows.Scan(&h.ID, &h.TenantID, &h.Date, &h.Name); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *pgCatalogRepo) TimeOffs(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) ([]models.TimeOff, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, resource_id, start_at, end_at, reason
		FROM resource_time_offs
		WHERE resource_id = $1 AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("time-offs for resource %d: %w", resourceID, err)
	}
	defer rows.Close()

	var out []models.TimeOff
	for rows.Next() {
		var t models.TimeOff
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ResourceID, &t.StartAt, &t.EndAt, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan time-off: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
