package models

import "time"

// Slot is one [start_at, end_at) unit of bookable inventory for a resource.
// AvailableCapacity counts down as bookings claim it; the database enforces
// it never goes negative.
type Slot struct {
	ID                int64     `json:"id"`
	TenantID          int64     `json:"tenant_id"`
	ResourceID        int64     `json:"resource_id"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	AvailableCapacity int       `json:"available_capacity"`
}

// AvailableStart is one advisory booking candidate: an aligned start whose
// full contiguous run still shows capacity on some resource.
type AvailableStart struct {
	ResourceID int64     `json:"resource_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
}
