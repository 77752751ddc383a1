package models

import "time"

// IdempotencyStatus is the record lifecycle: in_progress on first arrival,
// then succeeded or failed. The (tenant, key) unique constraint is the
// serialization mechanism; the first INSERT wins and replays observe its
// outcome.
type IdempotencyStatus string

const (
	IdempotencyInProgress IdempotencyStatus = "in_progress"
	IdempotencySucceeded  IdempotencyStatus = "succeeded"
	IdempotencyFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord maps (tenant, key) to the fingerprint of the request that
// claimed it and the serialized outcome replays must see until ExpiresAt.
type IdempotencyRecord struct {
	TenantID      int64             `json:"tenant_id"`
	Key           string            `json:"key"`
	RequestSHA256 string            `json:"request_sha256"`
	Response      []byte            `json:"response,omitempty"`
	StatusCode    int               `json:"status_code,omitempty"`
	Status        IdempotencyStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}
