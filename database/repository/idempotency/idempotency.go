// File: database/repository/idempotency/idempotency.go
package idempotencyRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotify/database"
	"slotify/models"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no record exists for (tenant, key).
var ErrNotFound = errors.New("idempotency: not found")

// IdempotencyRepository serializes concurrent replays through the
// (tenant, key) primary key: the first INSERT wins, everyone else observes
// its outcome.
type IdempotencyRepository interface {
	// TryInsert probes with INSERT ... ON CONFLICT DO NOTHING and reports
	// whether this request claimed the key.
	TryInsert(ctx context.Context, tx database.Tx, tenantID int64, key, requestSHA string, expiresAt time.Time) (bool, error)
	Get(ctx context.Context, tx database.Tx, tenantID int64, key string) (*models.IdempotencyRecord, error)
	// Finalize records the serialized outcome replays must see.
	Finalize(ctx context.Context, tx database.Tx, tenantID int64, key string, status models.IdempotencyStatus, statusCode int, response []byte, expiresAt time.Time) error
	PurgeExpired(ctx context.Context, tx database.Tx, now time.Time) (int64, error)
}

// NewPgIdempotencyRepo constructs the Postgres-backed IdempotencyRepository.
func NewPgIdempotencyRepo() IdempotencyRepository {
	return &pgIdempotencyRepo{}
}

type pgIdempotencyRepo struct{}

func (r *pgIdempotencyRepo) TryInsert(ctx context.Context, tx database.Tx, tenantID int64, key, requestSHA string, expiresAt time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (tenant_id, key, request_sha256, status, expires_at)
		VALUES ($1, $2, $3, 'in_progress', $4)
		ON CONFLICT (tenant_id, key) DO NOTHING
	`, tenantID, key, requestSHA, expiresAt)
	if err != nil {
		return false, fmt.Errorf("idempotency probe: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgIdempotencyRepo) Get(ctx context.Context, tx database.Tx, tenantID int64, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	var statusCode *int
	err := tx.QueryRow(ctx, `
		SELECT tenant_id, key, request_sha256, response, status_code, status, created_at, expires_at
		FROM idempotency_keys
		WHERE tenant_id = $1 AND key = $2
	`, tenantID, key).Scan(&rec.TenantID, &rec.Key, &rec.RequestSHA256,
		&rec.Response, &statusCode, &rec.Status, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if statusCode != nil {
		rec.StatusCode = *statusCode
	}
	return &rec, nil
}

func (r *pgIdempotencyRepo) Finalize(ctx context.Context, tx database.Tx, tenantID int64, key string, status models.IdempotencyStatus, statusCode int, response []byte, expiresAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE idempotency_keys
		SET status = $3, status_code = $4, response = $5, expires_at = $6
		WHERE tenant_id = $1 AND key = $2
	`, tenantID, key, status, statusCode, response, expiresAt)
	if err != nil {
		return fmt.Errorf("finalize idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgIdempotencyRepo) PurgeExpired(ctx context.Context, tx database.Tx, now time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM idempotency_keys WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
