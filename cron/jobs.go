// File: cron/jobs.go
package cron

import (
	"context"
	"time"

	"slotify/database"
	idempotencyRepo "slotify/database/repository/idempotency"
	"slotify/services/schedule"
	"slotify/utils"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitScheduledJobs wires the recurring maintenance work: the daily horizon
// roll that keeps slot inventory materialized, and the hourly purge of
// expired idempotency records. Returns the cron so main can stop it on
// shutdown.
func InitScheduledJobs(compiler schedule.CompilerService, idem idempotencyRepo.IdempotencyRepository, q database.Tx) *robfig.Cron {
	logger := utils.GetLogger()
	c := robfig.New()

	if _, err := c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := compiler.RollHorizon(ctx); err != nil {
			logger.Error("daily horizon roll failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("failed to register horizon roll job", zap.Error(err))
	}

	if _, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		purged, err := idem.PurgeExpired(ctx, q, time.Now().UTC())
		if err != nil {
			logger.Error("idempotency purge failed", zap.Error(err))
			return
		}
		if purged > 0 {
			logger.Info("purged expired idempotency records", zap.Int64("purged", purged))
		}
	}); err != nil {
		logger.Fatal("failed to register idempotency purge job", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduled jobs started")
	return c
}
