package models

// PaymentEventPayload is the body of PAYMENT_COMPLETED events, produced when
// the payment provider reports a charge for a booking.
type PaymentEventPayload struct {
	TenantID        int64  `json:"tenant_id"`
	BookingID       int64  `json:"booking_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}
