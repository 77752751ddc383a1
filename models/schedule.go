package models

import "time"

// BusinessHour is one weekly opening interval in tenant-local wall minutes.
// Weekday follows time.Weekday (0 = Sunday). The optional effective window
// lets a tenant phase hours in or out without rewriting history.
type BusinessHour struct {
	ID            int64      `json:"id"`
	TenantID      int64      `json:"tenant_id"`
	Weekday       int        `json:"weekday"`
	OpenMin       int        `json:"open_min"`
	CloseMin      int        `json:"close_min"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

// Holiday closes a whole tenant-local calendar date. Date is YYYY-MM-DD.
type Holiday struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
}

// TimeOff blocks one resource for an absolute interval.
type TimeOff struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenant_id"`
	ResourceID int64     `json:"resource_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Reason     string    `json:"reason,omitempty"`
}

// ScheduleConflict reports a slot the compiler wanted to remove or shrink but
// could not because bookings hold capacity on it.
type ScheduleConflict struct {
	ResourceID        int64     `json:"resource_id"`
	SlotID            int64     `json:"slot_id"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	AvailableCapacity int       `json:"available_capacity"`
	FullCapacity      int       `json:"full_capacity"`
	Reason            string    `json:"reason"`
}
