package models

import "time"

// BookingStatus is the booking lifecycle state.
type BookingStatus string

const (
	BookingTentative BookingStatus = "tentative"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "noshow"
	BookingCompleted BookingStatus = "completed"
)

// Booking is the tenant-scoped aggregate. StartAt/EndAt are aligned to the
// tenant granularity and span the service duration plus buffers.
type Booking struct {
	ID               int64         `json:"id"`
	TenantID         int64         `json:"tenant_id"`
	CustomerID       int64         `json:"customer_id"`
	ServiceID        int64         `json:"service_id"`
	ResourceID       int64         `json:"resource_id"`
	StartAt          time.Time     `json:"start_at"`
	EndAt            time.Time     `json:"end_at"`
	Status           BookingStatus `json:"status"`
	TotalPrice       int64         `json:"total_price"`
	Paid             bool          `json:"paid"`
	IdempotencyKey   string        `json:"-"`
	ConfirmationCode string        `json:"confirmation_code"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// BookingItem links a booking to one of the slots it occupies. All items of a
// booking share one resource and form a contiguous slot sequence.
type BookingItem struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id"`
	SlotID     int64     `json:"slot_id"`
	ResourceID int64     `json:"resource_id"`
	StartAt    time.Time `json:"start_at"`
}

// BookingCancellation records who cancelled and when; the booking row keeps
// only the terminal status.
type BookingCancellation struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}
