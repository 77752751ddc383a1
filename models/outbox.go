package models

import "time"

// OutboxStatus is the event state machine: pending → processing → completed on
// success; processing → pending with attempts++ on retryable failure;
// dead_letter when attempts exceed the cap. Dead letters require operator
// action and are never dropped.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxCompleted  OutboxStatus = "completed"
	OutboxFailed     OutboxStatus = "failed"
	OutboxDeadLetter OutboxStatus = "dead_letter"
)

// Event types emitted by the core.
const (
	EventBookingCreated      = "BOOKING_CREATED"
	EventBookingConfirmed    = "BOOKING_CONFIRMED"
	EventBookingCancelled    = "BOOKING_CANCELLED"
	EventPaymentCompleted    = "PAYMENT_COMPLETED"
	EventNotificationRequest = "NOTIFICATION_REQUESTED"
)

// OutboxEvent is a durable side-effect intent written in the same transaction
// as the state change that produced it. AggregateID groups events that must be
// delivered in order (one in flight per (tenant, aggregate) at a time).
type OutboxEvent struct {
	ID            int64        `json:"id"`
	TenantID      int64        `json:"tenant_id"`
	AggregateID   int64        `json:"aggregate_id"`
	EventType     string       `json:"event_type"`
	Payload       []byte       `json:"payload"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	ClaimedAt     *time.Time   `json:"claimed_at,omitempty"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	TraceID       string       `json:"trace_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// BookingEventPayload is the JSON body of BOOKING_CREATED / BOOKING_CANCELLED
// events. Contacts and reminder times are embedded so handlers never read the
// bookings table.
type BookingEventPayload struct {
	BookingID        int64       `json:"booking_id"`
	TenantID         int64       `json:"tenant_id"`
	ConfirmationCode string      `json:"confirmation_code"`
	StartAt          time.Time   `json:"start_at"`
	EndAt            time.Time   `json:"end_at"`
	Customer         Customer    `json:"customer"`
	ReminderTimes    []time.Time `json:"reminder_times,omitempty"`
}
