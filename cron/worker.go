// File: cron/worker.go
package cron

import (
	"context"
	"encoding/json"
	"time"

	"slotify/config"
	"slotify/models"
	"slotify/services/notification"
	"slotify/services/tasks"
	"slotify/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitReminderWorker runs the asynq worker in the background. Reminder tasks
// were enqueued with ProcessAt by the notification service; this side fires
// them.
func InitReminderWorker(notifSvc *notification.DefaultNotificationService) {
	logger := utils.GetLogger()

	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.ReminderQueue: 2,
				"default":           1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReminderSend, handleReminderTask(notifSvc))

	go func() {
		logger.Info("starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("reminder worker failed to start",
					zap.Int("attempt", attempts), zap.Int("max_attempts", maxAttempts), zap.Error(err))
				if attempts == maxAttempts {
					logger.Fatal("reminder worker exhausted start attempts")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(notifSvc *notification.DefaultNotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reminder payload", zap.Error(err))
			return err
		}

		if notifSvc.RemindersRevoked(ctx, p.TenantID, p.BookingID) {
			utils.GetLogger().Info("reminder skipped, booking cancelled",
				zap.Int64("booking_id", p.BookingID),
				zap.String("confirmation_code", p.ConfirmationCode))
			return nil
		}

		err := notifSvc.Sender.Send(ctx, p.Channel, p.Recipient, p.Title, p.Body)
		if err != nil {
			utils.GetLogger().Error("reminder send failed",
				zap.Int64("booking_id", p.BookingID), zap.Error(err))
		}
		return err
	}
}
