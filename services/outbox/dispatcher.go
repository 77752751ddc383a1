// File: services/outbox/dispatcher.go
package outbox

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"slotify/database"
	outboxRepo "slotify/database/repository/outbox"
	"slotify/models"

	"go.uber.org/zap"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 20
	defaultMaxAttempts    = 5
	defaultLease          = 30 * time.Second
	defaultHandlerTimeout = 10 * time.Second

	retryBackoffBase = time.Second
	retryBackoffCap  = 30 * time.Second
)

// Dispatcher polls the outbox, claims due events with SKIP LOCKED and runs
// their handlers with at-least-once semantics. Multiple dispatcher instances
// may run concurrently; the claim statement keeps them from colliding and the
// per-aggregate predicates keep them ordered.
type Dispatcher struct {
	Q              database.Tx // pool querier; every mark is a single atomic statement
	Outbox         outboxRepo.OutboxRepository
	Registry       *Registry
	Logger         *zap.Logger
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	Lease          time.Duration
	HandlerTimeout time.Duration
	Now            func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) pollInterval() time.Duration {
	if d.PollInterval <= 0 {
		return defaultPollInterval
	}
	return d.PollInterval
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize <= 0 {
		return defaultBatchSize
	}
	return d.BatchSize
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return d.MaxAttempts
}

func (d *Dispatcher) lease() time.Duration {
	if d.Lease <= 0 {
		return defaultLease
	}
	return d.Lease
}

func (d *Dispatcher) handlerTimeout() time.Duration {
	if d.HandlerTimeout <= 0 {
		return defaultHandlerTimeout
	}
	return d.HandlerTimeout
}

// Run polls until the context is cancelled. A non-empty batch triggers an
// immediate re-poll so a backlog drains faster than the tick.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Logger.Info("outbox dispatcher started",
		zap.Duration("poll_interval", d.pollInterval()),
		zap.Int("batch_size", d.batchSize()),
		zap.Int("max_attempts", d.maxAttempts()))

	ticker := time.NewTicker(d.pollInterval())
	defer ticker.Stop()

	leaseSweep := time.NewTicker(d.lease())
	defer leaseSweep.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Logger.Info("outbox dispatcher stopped")
			return
		case <-leaseSweep.C:
			d.sweepLeases(ctx)
		case <-ticker.C:
			for d.DispatchBatch(ctx) > 0 {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// DispatchBatch claims and processes one batch; returns how many events it
// handled.
func (d *Dispatcher) DispatchBatch(ctx context.Context) int {
	now := d.now()
	events, err := d.Outbox.Claim(ctx, d.Q, d.batchSize(), now)
	if err != nil {
		d.Logger.Error("outbox claim failed", zap.Error(err))
		return 0
	}

	for _, ev := range events {
		d.process(ctx, ev)
	}
	return len(events)
}

func (d *Dispatcher) process(ctx context.Context, ev models.OutboxEvent) {
	hctx, cancel := context.WithTimeout(ctx, d.handlerTimeout())
	err := d.Registry.Handle(hctx, ev)
	cancel()

	now := d.now()
	switch {
	case err == nil:
		if merr := d.Outbox.MarkCompleted(ctx, d.Q, ev.ID, now); merr != nil {
			d.Logger.Error("outbox mark completed failed",
				zap.Int64("event_id", ev.ID), zap.Error(merr))
		}

	case errors.Is(err, ErrNoHandler), isPermanent(err):
		d.Logger.Error("outbox event dead-lettered",
			zap.Int64("event_id", ev.ID),
			zap.String("event_type", ev.EventType),
			zap.String("trace_id", ev.TraceID),
			zap.Error(err))
		if merr := d.Outbox.MarkDeadLetter(ctx, d.Q, ev.ID, err.Error(), now); merr != nil {
			d.Logger.Error("outbox mark dead-letter failed",
				zap.Int64("event_id", ev.ID), zap.Error(merr))
		}

	default:
		attempts := ev.Attempts + 1
		if attempts >= d.maxAttempts() {
			d.Logger.Error("outbox event exhausted retries",
				zap.Int64("event_id", ev.ID),
				zap.String("event_type", ev.EventType),
				zap.Int("attempts", attempts),
				zap.Error(err))
			if merr := d.Outbox.MarkDeadLetter(ctx, d.Q, ev.ID, err.Error(), now); merr != nil {
				d.Logger.Error("outbox mark dead-letter failed",
					zap.Int64("event_id", ev.ID), zap.Error(merr))
			}
			return
		}
		next := now.Add(retryBackoff(attempts))
		d.Logger.Warn("outbox event handler failed, retrying",
			zap.Int64("event_id", ev.ID),
			zap.String("event_type", ev.EventType),
			zap.Int("attempts", attempts),
			zap.Time("next_attempt_at", next),
			zap.Error(err))
		if merr := d.Outbox.MarkRetry(ctx, d.Q, ev.ID, attempts, next, err.Error()); merr != nil {
			d.Logger.Error("outbox mark retry failed",
				zap.Int64("event_id", ev.ID), zap.Error(merr))
		}
	}
}

func (d *Dispatcher) sweepLeases(ctx context.Context) {
	cutoff := d.now().Add(-d.lease())
	released, err := d.Outbox.ReleaseExpiredLeases(ctx, d.Q, cutoff)
	if err != nil {
		d.Logger.Error("outbox lease sweep failed", zap.Error(err))
		return
	}
	if released > 0 {
		d.Logger.Warn("reclaimed expired outbox leases", zap.Int64("released", released))
	}
}

// retryBackoff is capped exponential with up to 250ms of jitter so retry
// storms from one incident spread out.
func retryBackoff(attempts int) time.Duration {
	backoff := retryBackoffBase << (attempts - 1)
	if backoff > retryBackoffCap || backoff <= 0 {
		backoff = retryBackoffCap
	}
	return backoff + time.Duration(rand.Int63n(int64(250*time.Millisecond)))
}

func isPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
