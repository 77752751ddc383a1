package booking

import "fmt"

// Stable error codes surfaced to callers.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeValidationFailed       = "validation_failed"
	CodeIdempotencyConflict    = "idempotency_conflict"
	CodeIdempotencyInProgress  = "idempotency_in_progress"
	CodeTimeslotSoldOut        = "timeslot_sold_out"
	CodeSlotNotFound           = "slot_not_found"
	CodeSlotDiscontinuous      = "slot_discontinuous"
	CodeDoubleBooking          = "double_booking"
	CodeCancelCutoffElapsed    = "cancel_cutoff_elapsed"
	CodeServiceInactive        = "service_inactive"
	CodeConflictRetryExhausted = "conflict_retry_exhausted"
	CodeBookingNotFound        = "booking_not_found"
	CodeDatabaseUnavailable    = "database_unavailable"
	CodeRateLimited            = "rate_limited"
	CodeInternal               = "internal"
)

// Error is a coded business error. Business codes are surfaced verbatim;
// infrastructure failures are logged and mapped to internal before they reach
// the caller.
type Error struct {
	Code    string
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a coded error.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a field-level detail.
func (e *Error) WithDetail(field, reason string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[field] = reason
	return e
}
