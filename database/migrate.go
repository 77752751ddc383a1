package database

import (
	"context"
	"fmt"
)

// migrations are applied in order on startup. Statements are idempotent so a
// restart against an already-migrated schema is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		slot_granularity_min INT NOT NULL DEFAULT 15 CHECK (slot_granularity_min IN (5, 15)),
		currency TEXT NOT NULL DEFAULT 'USD',
		cancel_cutoff_min INT NOT NULL DEFAULT 0,
		reminder_offsets_min INT[] NOT NULL DEFAULT '{1440,120}',
		max_booking_duration_min INT NOT NULL DEFAULT 480,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('staff','seat','room','table')),
		capacity INT NOT NULL CHECK (capacity >= 1),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		duration_min INT NOT NULL CHECK (duration_min > 0),
		buffer_before_min INT NOT NULL DEFAULT 0 CHECK (buffer_before_min >= 0),
		buffer_after_min INT NOT NULL DEFAULT 0 CHECK (buffer_after_min >= 0),
		price BIGINT NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS service_resources (
		service_id BIGINT NOT NULL REFERENCES services(id),
		resource_id BIGINT NOT NULL REFERENCES resources(id),
		PRIMARY KEY (service_id, resource_id)
	)`,
	`CREATE TABLE IF NOT EXISTS business_hours (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		weekday INT NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		open_min INT NOT NULL CHECK (open_min >= 0 AND open_min < 1440),
		close_min INT NOT NULL CHECK (close_min > 0 AND close_min <= 1440),
		effective_from TIMESTAMPTZ,
		effective_to TIMESTAMPTZ,
		CHECK (open_min < close_min)
	)`,
	`CREATE TABLE IF NOT EXISTS holidays (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		date DATE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		UNIQUE (tenant_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS resource_time_offs (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		resource_id BIGINT NOT NULL REFERENCES resources(id),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		CHECK (start_at < end_at)
	)`,
	`CREATE TABLE IF NOT EXISTS timeslots (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		resource_id BIGINT NOT NULL REFERENCES resources(id),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		available_capacity INT NOT NULL CHECK (available_capacity >= 0),
		CHECK (start_at < end_at)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS timeslots_tenant_resource_start
		ON timeslots (tenant_id, resource_id, start_at)`,
	`CREATE INDEX IF NOT EXISTS timeslots_availability_scan
		ON timeslots (tenant_id, start_at, available_capacity)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		chat_user_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		service_id BIGINT NOT NULL REFERENCES services(id),
		resource_id BIGINT NOT NULL REFERENCES resources(id),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('tentative','confirmed','cancelled','noshow','completed')),
		total_price BIGINT NOT NULL DEFAULT 0,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		idempotency_key TEXT NOT NULL,
		confirmation_code TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, idempotency_key),
		CHECK (start_at < end_at)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_items (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		booking_id BIGINT NOT NULL REFERENCES bookings(id),
		slot_id BIGINT NOT NULL REFERENCES timeslots(id),
		resource_id BIGINT NOT NULL REFERENCES resources(id),
		start_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS booking_items_booking
		ON booking_items (booking_id)`,
	`CREATE TABLE IF NOT EXISTS booking_cancellations (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		booking_id BIGINT NOT NULL REFERENCES bookings(id),
		reason TEXT NOT NULL DEFAULT '',
		cancelled_by TEXT NOT NULL DEFAULT '',
		cancelled_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		tenant_id BIGINT NOT NULL,
		key TEXT NOT NULL,
		request_sha256 TEXT NOT NULL,
		response BYTEA,
		status_code INT,
		status TEXT NOT NULL CHECK (status IN ('in_progress','succeeded','failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		aggregate_id BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending','processing','completed','failed','dead_letter')),
		attempts INT NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at TIMESTAMPTZ,
		processed_at TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		trace_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_claim
		ON outbox_events (status, next_attempt_at)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_aggregate
		ON outbox_events (tenant_id, aggregate_id)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
