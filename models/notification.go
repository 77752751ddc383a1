package models

// NotificationRequestPayload is the body of NOTIFICATION_REQUESTED events:
// an ad-hoc message some module wants delivered through the outbox.
type NotificationRequestPayload struct {
	TenantID  int64  `json:"tenant_id"`
	Channel   string `json:"channel"` // email, sms or chat
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// ReminderPayload is the asynq task body for a scheduled booking reminder.
type ReminderPayload struct {
	BookingID        int64  `json:"booking_id"`
	TenantID         int64  `json:"tenant_id"`
	ConfirmationCode string `json:"confirmation_code"`
	FireAt           string `json:"fire_at"`
	Title            string `json:"title"`
	Body             string `json:"body"`
	Channel          string `json:"channel"` // email, sms or chat
	Recipient        string `json:"recipient"`
}
