package models

import "time"

// Service is an offering with a duration and optional setup/teardown buffers.
// Price is in the tenant currency's minor unit.
type Service struct {
	ID              int64     `json:"id"`
	TenantID        int64     `json:"tenant_id"`
	Name            string    `json:"name"`
	DurationMin     int       `json:"duration_min"`
	BufferBeforeMin int       `json:"buffer_before_min"`
	BufferAfterMin  int       `json:"buffer_after_min"`
	Price           int64     `json:"price"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// TotalMinutes is the span a booking of this service occupies, buffers
// included.
func (s *Service) TotalMinutes() int {
	return s.BufferBeforeMin + s.DurationMin + s.BufferAfterMin
}
