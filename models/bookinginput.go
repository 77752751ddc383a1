package models

// CustomerInput is the contact block of a public booking request.
type CustomerInput struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	ChatUserID string `json:"chat_user_id,omitempty"`
}

// BookingInput is the public create-booking request body. Exactly one of
// TimeslotIDs or StartAt must be set: explicit slots, or a start the
// coordinator expands into a contiguous sequence.
type BookingInput struct {
	TenantID       int64         `json:"tenant_id" binding:"required"`
	ServiceID      int64         `json:"service_id" binding:"required"`
	ResourceID     *int64        `json:"resource_id,omitempty"`
	TimeslotIDs    []int64       `json:"timeslot_ids,omitempty"`
	StartAt        string        `json:"start_at,omitempty"` // RFC 3339
	Customer       CustomerInput `json:"customer" binding:"required"`
	Notes          string        `json:"notes,omitempty"`
	ConsentVersion string        `json:"consent_version,omitempty"`
}

// CancelInput is the body of a cancellation request.
type CancelInput struct {
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}
