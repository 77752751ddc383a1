package models

import "time"

// ResourceKind classifies what a slot sequence occupies.
type ResourceKind string

const (
	ResourceStaff ResourceKind = "staff"
	ResourceSeat  ResourceKind = "seat"
	ResourceRoom  ResourceKind = "room"
	ResourceTable ResourceKind = "table"
)

// Resource is a bookable unit. Capacity is the number of concurrent bookings
// one slot of this resource admits.
type Resource struct {
	ID        int64        `json:"id"`
	TenantID  int64        `json:"tenant_id"`
	Name      string       `json:"name"`
	Kind      ResourceKind `json:"kind"`
	Capacity  int          `json:"capacity"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}
