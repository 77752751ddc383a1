// File: services/payment/payment.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	"slotify/models"
	"slotify/services/outbox"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// Verifier confirms a payment intent with the provider before the booking is
// marked paid. Split out so tests run without Stripe.
type Verifier interface {
	Verify(ctx context.Context, p models.PaymentEventPayload) error
}

// StripeVerifier checks the intent against the Stripe API. The global
// stripe.Key is set at startup.
type StripeVerifier struct{}

func (StripeVerifier) Verify(ctx context.Context, p models.PaymentEventPayload) error {
	pi, err := paymentintent.Get(p.PaymentIntentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return fmt.Errorf("fetch payment intent %s: %w", p.PaymentIntentID, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment intent %s in status %s", p.PaymentIntentID, pi.Status)
	}
	if pi.Amount != p.Amount || !strings.EqualFold(string(pi.Currency), p.Currency) {
		return outbox.Permanent(fmt.Errorf("payment intent %s amount mismatch: got %d %s, want %d %s",
			p.PaymentIntentID, pi.Amount, pi.Currency, p.Amount, p.Currency))
	}
	return nil
}

// Service marks bookings paid once the provider confirms the charge.
type Service struct {
	DB       database.TxRunner
	Bookings bookingRepo.BookingRepository
	Verifier Verifier
	Logger   *zap.Logger
}

// RegisterHandlers binds PAYMENT_COMPLETED processing.
func RegisterHandlers(r *outbox.Registry, svc *Service) {
	r.RegisterFunc(models.EventPaymentCompleted, svc.HandlePaymentCompleted)
}

// HandlePaymentCompleted verifies the charge and flips the booking to paid.
// A missing booking is permanent; verification hiccups retry.
func (s *Service) HandlePaymentCompleted(ctx context.Context, ev models.OutboxEvent) error {
	var p models.PaymentEventPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return outbox.Permanent(fmt.Errorf("decode payment event %d: %w", ev.ID, err))
	}

	if s.Verifier != nil {
		if err := s.Verifier.Verify(ctx, p); err != nil {
			return err
		}
	}

	err := s.DB.WithinTx(ctx, func(tx database.Tx) error {
		bk, err := s.Bookings.LockBooking(ctx, tx, p.TenantID, p.BookingID)
		if err != nil {
			return err
		}
		if bk.Paid {
			return nil
		}
		if bk.Status == models.BookingCancelled {
			s.Logger.Warn("payment completed for cancelled booking",
				zap.Int64("booking_id", p.BookingID),
				zap.String("payment_intent", p.PaymentIntentID))
		}
		return s.Bookings.MarkPaid(ctx, tx, p.BookingID)
	})
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return outbox.Permanent(fmt.Errorf("payment for unknown booking %d", p.BookingID))
	}
	return err
}
