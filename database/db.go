package database

import (
	"context"
	"fmt"
	"time"

	"slotify/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the global Postgres connection pool.
var Pool *pgxpool.Pool

// InitDB opens and pings the Postgres pool. The caller maps failure to exit
// code 2 (database unreachable at startup).
func InitDB(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(config.AppConfig.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	cfg.MinConns = int32(config.AppConfig.DBPoolMin)
	cfg.MaxConns = int32(config.AppConfig.DBPoolMax)
	if ms := config.AppConfig.DBStatementTimeout; ms > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", ms)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return fmt.Errorf("connect to Postgres: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping Postgres: %w", err)
	}

	Pool = pool
	return nil
}
