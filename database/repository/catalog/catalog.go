package catalogRepo

import (
	"context"
	"errors"
	"fmt"

	"slotify/database"
	"slotify/models"

	"github.com/jackc/pgx/v5"
)

func (r *pgCatalogRepo) GetTenant(ctx context.Context, tx database.Tx, id int64) (*models.Tenant, error) {
	var t models.Tenant
	err := tx.QueryRow(ctx, `
		SELECT id, name, timezone, slot_granularity_min, currency,
		       cancel_cutoff_min, reminder_offsets_min, max_booking_duration_min, created_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Timezone, &t.SlotGranularityMin, &t.Currency,
		&t.CancelCutoffMin, &t.ReminderOffsetsMin, &t.MaxBookingDurationMin, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %d: %w", id, err)
	}
	return &t, nil
}

func (r *pgCatalogRepo) ActiveTenants(ctx context.Context, tx database.Tx) ([]models.Tenant, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, timezone, slot_granularity_min, currency,
		       cancel_cutoff_min, reminder_offsets_min, max_booking_duration_min, created_at
		FROM tenants
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Timezone, &t.SlotGranularityMin, &t.Currency,
			&t.CancelCutoffMin, &t.ReminderOffsetsMin, &t.MaxBookingDurationMin, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *pgCatalogRepo) GetService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) (*models.Service, error) {
	var s models.Service
	err := tx.QueryRow(ctx, `
		SELECT id, tenant_id, name, duration_min, buffer_before_min, buffer_after_min,
		       price, active, created_at
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, serviceID).Scan(&s.ID, &s.TenantID, &s.Name, &s.DurationMin,
		&s.BufferBeforeMin, &s.BufferAfterMin, &s.Price, &s.Active, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", serviceID, err)
	}
	return &s, nil
}

func (r *pgCatalogRepo) GetResource(ctx context.Context, tx database.Tx, tenantID, resourceID int64) (*models.Resource, error) {
	var res models.Resource
	err := tx.QueryRow(ctx, `
		SELECT id, tenant_id, name, kind, capacity, active, created_at
		FROM resources
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, resourceID).Scan(&res.ID, &res.TenantID, &res.Name, &res.Kind,
		&res.Capacity, &res.Active, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %d: %w", resourceID, err)
	}
	return &res, nil
}

// ResourcesForService returns the active resources linked to the service,
// ordered by id ascending so deterministic selection ties break the same way
// on every node.
func (r *pgCatalogRepo) ResourcesForService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) ([]models.Resource, error) {
	rows, err := tx.Query(ctx, `
		SELECT r.id, r.tenant_id, r.name, r.kind, r.capacity, r.active, r.created_at
		FROM resources r
		JOIN service_resources sr ON sr.resource_id = r.id
		WHERE r.tenant_id = $1 AND sr.service_id = $2 AND r.active
		ORDER BY r.id ASC
	`, tenantID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("resources for service %d: %w", serviceID, err)
	}
	defer rows.Close()
	return scanResources(rows)
}

func (r *pgCatalogRepo) ActiveResources(ctx context.Context, tx database.Tx, tenantID int64) ([]models.Resource, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, name, kind, capacity, active, created_at
		FROM resources
		WHERE tenant_id = $1 AND active
		ORDER BY id ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("active resources for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()
	return scanResources(rows)
}

func (r *pgCatalogRepo) ServiceLinkedToResource(ctx context.Context, tx database.Tx, serviceID, resourceID int64) (bool, error) {
	var linked bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM service_resources
			WHERE service_id = $1 AND resource_id = $2
		)
	`, serviceID, resourceID).Scan(&linked)
	if err != nil {
		return false, fmt.Errorf("check service %d resource %d link: %w", serviceID, resourceID, err)
	}
	return linked, nil
}

func scanResources(rows pgx.Rows) ([]models.Resource, error) {
	var out []models.Resource
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.Kind,
			&res.Capacity, &res.Active, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
