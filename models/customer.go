package models

import "time"

// Customer is the booking contact. Bookings arrive from public channels, so
// customers are created inline rather than pre-registered.
type Customer struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenant_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	ChatUserID string    `json:"chat_user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
