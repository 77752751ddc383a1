package outboxRepo

import (
	"context"
	"fmt"
	"time"

	"slotify/database"
	"slotify/models"
)

func (r *pgOutboxRepo) Insert(ctx context.Context, tx database.Tx, ev *models.OutboxEvent) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO outbox_events (tenant_id, aggregate_id, event_type, payload,
			status, next_attempt_at, trace_id)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING id, created_at
	`, ev.TenantID, ev.AggregateID, ev.EventType, ev.Payload,
		ev.NextAttemptAt, ev.TraceID).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", ev.EventType, err)
	}
	ev.Status = models.OutboxPending
	return nil
}

// Claim uses FOR UPDATE SKIP LOCKED so concurrent dispatchers scale without
// coordination. The NOT EXISTS predicates enforce per-(tenant, aggregate)
// ordering: at most one in-flight event per aggregate, oldest first.
func (r *pgOutboxRepo) Claim(ctx context.Context, tx database.Tx, batch int, now time.Time) ([]models.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
		UPDATE outbox_events o
		SET status = 'processing', claimed_at = $1
		WHERE o.id IN (
			SELECT e.id
			FROM outbox_events e
			WHERE e.status = 'pending' AND e.next_attempt_at <= $1
			  AND NOT EXISTS (
				SELECT 1 FROM outbox_events f
				WHERE f.tenant_id = e.tenant_id AND f.aggregate_id = e.aggregate_id
				  AND f.status = 'processing'
			  )
			  AND NOT EXISTS (
				SELECT 1 FROM outbox_events g
				WHERE g.tenant_id = e.tenant_id AND g.aggregate_id = e.aggregate_id
				  AND g.status = 'pending' AND g.id < e.id
			  )
			ORDER BY e.next_attempt_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING o.id, o.tenant_id, o.aggregate_id, o.event_type, o.payload,
			o.status, o.attempts, o.next_attempt_at, o.claimed_at, o.processed_at,
			o.last_error, o.trace_id, o.created_at
	`, now, batch)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var ev models.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.AggregateID, &ev.EventType, &ev.Payload,
			&ev.Status, &ev.Attempts, &ev.NextAttemptAt, &ev.ClaimedAt, &ev.ProcessedAt,
			&ev.LastError, &ev.TraceID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *pgOutboxRepo) MarkCompleted(ctx context.Context, tx database.Tx, id int64, now time.Time) error {
	if _, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'completed', processed_at = $2
		WHERE id = $1
	`, id, now); err != nil {
		return fmt.Errorf("complete outbox event %d: %w", id, err)
	}
	return nil
}

func (r *pgOutboxRepo) MarkRetry(ctx context.Context, tx database.Tx, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'pending', attempts = $2, next_attempt_at = $3,
		    last_error = $4, claimed_at = NULL
		WHERE id = $1
	`, id, attempts, nextAttemptAt, lastErr); err != nil {
		return fmt.Errorf("retry outbox event %d: %w", id, err)
	}
	return nil
}

func (r *pgOutboxRepo) MarkDeadLetter(ctx context.Context, tx database.Tx, id int64, lastErr string, now time.Time) error {
	if _, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'dead_letter', attempts = attempts + 1,
		    last_error = $2, processed_at = $3
		WHERE id = $1
	`, id, lastErr, now); err != nil {
		return fmt.Errorf("dead-letter outbox event %d: %w", id, err)
	}
	return nil
}

func (r *pgOutboxRepo) ReleaseExpiredLeases(ctx context.Context, tx database.Tx, cutoff time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'pending', claimed_at = NULL
		WHERE status = 'processing' AND claimed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}
