package models

// BookingResponse is the payload returned on create and read. Items are
// included so clients can render the occupied slots without a second call.
type BookingResponse struct {
	Booking  Booking       `json:"booking"`
	Items    []BookingItem `json:"items"`
	Customer Customer      `json:"customer"`
	Replayed bool          `json:"-"`
}
