package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"slotify/database"
	catalogRepo "slotify/database/repository/catalog"
	"slotify/models"
	"slotify/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusForCode maps stable error codes to HTTP status codes.
func StatusForCode(code string) int {
	switch code {
	case CodeInvalidRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeSlotNotFound, CodeBookingNotFound:
		return http.StatusNotFound
	case CodeIdempotencyConflict, CodeIdempotencyInProgress, CodeTimeslotSoldOut,
		CodeSlotDiscontinuous, CodeDoubleBooking, CodeCancelCutoffElapsed,
		CodeServiceInactive, CodeConflictRetryExhausted:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeDatabaseUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// problemBody serializes a coded error exactly the way the HTTP layer renders
// it, so the bytes stored on the idempotency record match live responses.
func problemBody(e *Error) (int, []byte) {
	status := StatusForCode(e.Code)
	p := utils.Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: e.Message,
		Code:   e.Code,
	}
	for field, reason := range e.Details {
		p.Details = append(p.Details, utils.ProblemDetail{Field: field, Reason: reason})
	}
	body, _ := json.Marshal(p)
	return status, body
}

// canonicalFingerprint hashes the request body with object keys sorted, so
// semantically identical retries fingerprint identically regardless of key
// order.
func canonicalFingerprint(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		if canonical, err := json.Marshal(v); err == nil {
			raw = canonical
		}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// CreateBooking implements the single-transaction booking protocol. The
// TxRunner retries serialization failures and deadlocks end-to-end; the
// idempotency key keeps those retries from duplicating side effects.
func (c *DefaultCoordinator) CreateBooking(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if n := len(req.IdempotencyKey); n < 8 || n > 128 {
		return nil, NewError(CodeInvalidRequest, "Idempotency-Key header must be 8-128 characters").
			WithDetail("Idempotency-Key", "must be 8-128 characters")
	}
	if err := validateInput(&req.Input); err != nil {
		return nil, err
	}

	fingerprint := canonicalFingerprint(req.RawBody)
	var result *CreateResult

	err := c.DB.WithinTx(ctx, func(tx database.Tx) error {
		res, err := c.createInTx(ctx, tx, req, fingerprint)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrTxRetryExhausted) {
			return nil, NewError(CodeConflictRetryExhausted, "could not complete booking under contention, please retry")
		}
		return nil, err
	}

	if result.invalidate != nil {
		result.invalidate()
	}
	return result, nil
}

func validateInput(in *models.BookingInput) *Error {
	if in.TenantID <= 0 || in.ServiceID <= 0 {
		return NewError(CodeInvalidRequest, "tenant_id and service_id are required")
	}
	if in.Customer.Name == "" {
		return NewError(CodeValidationFailed, "customer name is required").
			WithDetail("customer.name", "required")
	}
	hasSlots := len(in.TimeslotIDs) > 0
	hasStart := in.StartAt != ""
	if hasSlots == hasStart {
		return NewError(CodeInvalidRequest, "exactly one of timeslot_ids or start_at must be provided")
	}
	if in.ResourceID != nil && *in.ResourceID <= 0 {
		return NewError(CodeValidationFailed, "resource_id must reference an existing resource").
			WithDetail("resource_id", "unresolved resource")
	}
	return nil
}

func (c *DefaultCoordinator) createInTx(ctx context.Context, tx database.Tx, req CreateRequest, fingerprint string) (*CreateResult, error) {
	now := c.now()
	in := req.Input

	// Idempotency probe: the (tenant, key) unique constraint serializes
	// concurrent replays. First INSERT wins; everyone else observes.
	inserted, err := c.Idem.TryInsert(ctx, tx, in.TenantID, req.IdempotencyKey, fingerprint, now.Add(c.IdemTTL))
	if err != nil {
		return nil, err
	}
	if !inserted {
		return c.replay(ctx, tx, in.TenantID, req.IdempotencyKey, fingerprint)
	}

	res, bizErr, err := c.reserve(ctx, tx, in, req.IdempotencyKey, now)
	if err != nil {
		return nil, err
	}
	if bizErr != nil {
		// Business refusals commit the idempotency record so replays see the
		// same outcome; nothing else was written on these paths.
		status, body := problemBody(bizErr)
		if err := c.Idem.Finalize(ctx, tx, in.TenantID, req.IdempotencyKey,
			models.IdempotencyFailed, status, body, now.Add(c.IdemTTL)); err != nil {
			return nil, err
		}
		return &CreateResult{StatusCode: status, Body: body}, nil
	}

	if err := c.Idem.Finalize(ctx, tx, in.TenantID, req.IdempotencyKey,
		models.IdempotencySucceeded, http.StatusCreated, res.Body, now.Add(c.IdemTTL)); err != nil {
		return nil, err
	}
	return res, nil
}

// replay resolves a request whose idempotency key already has a record.
func (c *DefaultCoordinator) replay(ctx context.Context, tx database.Tx, tenantID int64, key, fingerprint string) (*CreateResult, error) {
	rec, err := c.Idem.Get(ctx, tx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if rec.RequestSHA256 != fingerprint {
		return nil, NewError(CodeIdempotencyConflict,
			"idempotency key already used with a different request body")
	}
	switch rec.Status {
	case models.IdempotencyInProgress:
		return nil, NewError(CodeIdempotencyInProgress,
			"a request with this idempotency key is still in progress, retry with backoff")
	default:
		return &CreateResult{StatusCode: rec.StatusCode, Body: rec.Response, Replayed: true}, nil
	}
}

// reserve runs steps 2-7 of the protocol. A returned *Error is a business
// refusal recorded on the idempotency record; a plain error aborts the
// transaction.
func (c *DefaultCoordinator) reserve(ctx context.Context, tx database.Tx, in models.BookingInput, key string, now time.Time) (*CreateResult, *Error, error) {
	tenant, err := c.Catalog.GetTenant(ctx, tx, in.TenantID)
	if errors.Is(err, catalogRepo.ErrNotFound) {
		return nil, NewError(CodeValidationFailed, "unknown tenant %d", in.TenantID), nil
	}
	if err != nil {
		return nil, nil, err
	}
	svc, err := c.Catalog.GetService(ctx, tx, in.TenantID, in.ServiceID)
	if errors.Is(err, catalogRepo.ErrNotFound) {
		return nil, NewError(CodeValidationFailed, "unknown service %d", in.ServiceID), nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !svc.Active {
		return nil, NewError(CodeServiceInactive, "service %q is not bookable", svc.Name), nil
	}

	var locked []models.Slot
	var bounds Boundaries
	var bizErr *Error
	if len(in.TimeslotIDs) > 0 {
		locked, bounds, bizErr, err = c.lockExplicitSlots(ctx, tx, tenant, svc, in)
	} else {
		locked, bounds, bizErr, err = c.lockByStart(ctx, tx, tenant, svc, in)
	}
	if err != nil {
		return nil, nil, err
	}
	if bizErr != nil {
		return nil, bizErr, nil
	}
	resourceID := locked[0].ResourceID

	maxMin := tenant.MaxBookingDurationMin
	if maxMin <= 0 {
		maxMin = c.MaxDurationMin
	}
	if maxMin > 0 {
		if int(bounds.AlignedEnd.Sub(bounds.AlignedStart).Minutes()) > maxMin {
			return nil, NewError(CodeValidationFailed,
				"booking exceeds maximum duration of %d minutes", maxMin), nil
		}
	}

	// Capacity check under the lock, then the guarded decrement. One re-read
	// is allowed to tell a stale read from a true sell-out.
	bizErr, err = c.decrementSlots(ctx, tx, tenant, resourceID, locked)
	if err != nil {
		return nil, nil, err
	}
	if bizErr != nil {
		return nil, bizErr, nil
	}

	customer := models.Customer{
		TenantID:   tenant.ID,
		Name:       in.Customer.Name,
		Phone:      in.Customer.Phone,
		Email:      in.Customer.Email,
		ChatUserID: in.Customer.ChatUserID,
	}
	if _, err := c.Bookings.CreateCustomer(ctx, tx, &customer); err != nil {
		return nil, nil, err
	}

	bk := models.Booking{
		TenantID:       tenant.ID,
		CustomerID:     customer.ID,
		ServiceID:      svc.ID,
		ResourceID:     resourceID,
		StartAt:        bounds.AlignedStart,
		EndAt:          bounds.AlignedEnd,
		Status:         models.BookingConfirmed,
		TotalPrice:     svc.Price,
		IdempotencyKey: key,
		Notes:          in.Notes,
	}
	if _, err := c.Bookings.CreateBooking(ctx, tx, &bk); err != nil {
		return nil, nil, err
	}
	bk.ConfirmationCode = ConfirmationCode(bk.ID, bk.CreatedAt)
	if err := c.Bookings.SetConfirmationCode(ctx, tx, bk.ID, bk.ConfirmationCode); err != nil {
		return nil, nil, err
	}

	items := make([]models.BookingItem, len(locked))
	for i, s := range locked {
		items[i] = models.BookingItem{
			BookingID:  bk.ID,
			SlotID:     s.ID,
			ResourceID: s.ResourceID,
			StartAt:    s.StartAt,
		}
	}
	if err := c.Bookings.CreateItems(ctx, tx, items); err != nil {
		return nil, nil, err
	}

	if err := c.emitBookingEvents(ctx, tx, tenant, &bk, customer, now); err != nil {
		return nil, nil, err
	}

	response := models.BookingResponse{Booking: bk, Items: items, Customer: customer}
	body, err := json.Marshal(response)
	if err != nil {
		return nil, nil, err
	}

	invalidate := func() {
		if c.Cache != nil {
			c.Cache.InvalidateWindow(context.Background(), tenant.ID, resourceID, bounds.AlignedStart, bounds.AlignedEnd)
		}
	}
	return &CreateResult{StatusCode: http.StatusCreated, Body: body, invalidate: invalidate}, nil, nil
}

// decrementSlots requires capacity on every locked slot and asserts the
// guarded UPDATE touched all of them.
func (c *DefaultCoordinator) decrementSlots(ctx context.Context, tx database.Tx, tenant *models.Tenant, resourceID int64, locked []models.Slot) (*Error, error) {
	for _, s := range locked {
		if s.AvailableCapacity < 1 {
			return soldOut(s.StartAt), nil
		}
	}

	ids := make([]int64, len(locked))
	for i, s := range locked {
		ids[i] = s.ID
	}
	affected, err := c.Slots.DecrementCapacity(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if affected == int64(len(ids)) {
		return nil, nil
	}

	// Stale read vs true sell-out: re-read once under the locks we hold.
	relocked, err := c.Slots.LockByIDs(ctx, tx, tenant.ID, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range relocked {
		if s.AvailableCapacity < 1 {
			return soldOut(s.StartAt), nil
		}
	}
	// Every relocked row still shows capacity, yet the guarded UPDATE came up
	// short. Abort so the partial decrement rolls back instead of committing
	// as a refusal that leaks capacity.
	c.Logger.Warn("capacity decrement short after clean re-read",
		zap.Int64("resource_id", resourceID), zap.Int64("affected", affected))
	return nil, fmt.Errorf("capacity decrement affected %d of %d slots for resource %d", affected, len(ids), resourceID)
}

func soldOut(startAt time.Time) *Error {
	return NewError(CodeTimeslotSoldOut, "timeslot at %s is sold out", startAt.UTC().Format(time.RFC3339)).
		WithDetail("start_at", startAt.UTC().Format(time.RFC3339))
}

func (c *DefaultCoordinator) emitBookingEvents(ctx context.Context, tx database.Tx, tenant *models.Tenant, bk *models.Booking, customer models.Customer, now time.Time) error {
	payload := models.BookingEventPayload{
		BookingID:        bk.ID,
		TenantID:         tenant.ID,
		ConfirmationCode: bk.ConfirmationCode,
		StartAt:          bk.StartAt,
		EndAt:            bk.EndAt,
		Customer:         customer,
		ReminderTimes:    reminderTimes(tenant, bk.StartAt, now),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	traceID := uuid.New().String()
	for _, eventType := range []string{models.EventBookingCreated, models.EventBookingConfirmed} {
		ev := models.OutboxEvent{
			TenantID:      tenant.ID,
			AggregateID:   bk.ID,
			EventType:     eventType,
			Payload:       body,
			NextAttemptAt: now,
			TraceID:       traceID,
		}
		if err := c.Outbox.Insert(ctx, tx, &ev); err != nil {
			return err
		}
	}
	return nil
}

// reminderTimes applies the tenant's reminder offsets, clamped to >= now.
func reminderTimes(tenant *models.Tenant, startAt, now time.Time) []time.Time {
	offsets := tenant.ReminderOffsetsMin
	if len(offsets) == 0 {
		offsets = []int{24 * 60, 2 * 60}
	}
	var times []time.Time
	for _, min := range offsets {
		at := startAt.Add(-time.Duration(min) * time.Minute)
		if at.Before(now) {
			at = now
		}
		times = append(times, at)
	}
	return times
}
