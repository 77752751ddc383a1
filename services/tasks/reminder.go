// File: services/tasks/reminder.go
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"slotify/models"

	"github.com/hibiken/asynq"
)

const (
	// TypeReminderSend is the asynq task type for booking reminders.
	TypeReminderSend = "reminder:send"

	// ReminderQueue keeps reminders out of the default queue so a backlog of
	// other work never delays time-sensitive sends.
	ReminderQueue = "reminders"
)

// NewReminderTask builds the reminder task with a deterministic task ID, so
// re-emitting the same reminder (outbox at-least-once) enqueues it once.
func NewReminderTask(p models.ReminderPayload, seq int) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reminder payload: %w", err)
	}
	fireAt, err := time.Parse(time.RFC3339, p.FireAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse reminder fire_at: %w", err)
	}
	opts := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("reminder:%d:%d:%d", p.TenantID, p.BookingID, seq)),
		asynq.Queue(ReminderQueue),
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(3),
	}
	return asynq.NewTask(TypeReminderSend, payload), opts, nil
}
