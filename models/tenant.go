package models

import "time"

// Tenant is the unit of isolation. Every row the engine touches carries a
// tenant_id and every query filters on it.
type Tenant struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	Timezone              string    `json:"timezone"`
	SlotGranularityMin    int       `json:"slot_granularity_min"`
	Currency              string    `json:"currency"`
	CancelCutoffMin       int       `json:"cancel_cutoff_min"`
	ReminderOffsetsMin    []int     `json:"reminder_offsets_min"`
	MaxBookingDurationMin int       `json:"max_booking_duration_min"`
	CreatedAt             time.Time `json:"created_at"`
}

// Location resolves the tenant's IANA zone, falling back to UTC when the name
// does not load.
func (t *Tenant) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
