package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Tx is the querier every repository method accepts, so the same code runs
// inside the coordinator's transaction or directly against the pool. Both
// pgx.Tx and *pgxpool.Pool satisfy it.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// ErrTxRetryExhausted marks a transaction that kept hitting serialization
// failures or deadlocks after all retries.
var ErrTxRetryExhausted = errors.New("transaction retries exhausted")

const (
	txMaxAttempts   = 3
	txBackoffBase   = 100 * time.Millisecond
	pgSerialization = "40001"
	pgDeadlock      = "40P01"
)

// PoolRunner is the production TxRunner: READ COMMITTED transactions with
// end-to-end retry on serialization failures and deadlocks (100ms × 2ⁿ).
type PoolRunner struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
}

func (r *PoolRunner) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := txBackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			r.Logger.Debug("retrying transaction",
				zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}

		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrTxRetryExhausted, lastErr)
}

func (r *PoolRunner) runOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op if the transaction was committed.
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerialization || pgErr.Code == pgDeadlock
	}
	return false
}
