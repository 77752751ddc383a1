// File: services/outbox/registry.go
package outbox

import (
	"context"
	"errors"
	"fmt"

	"slotify/models"
)

// ErrNoHandler means an event type nobody registered for reached the
// dispatcher. Such events dead-letter immediately; retrying cannot fix them.
var ErrNoHandler = errors.New("no handler registered for event type")

// Handler consumes one claimed outbox event. Returning an error requeues the
// event with backoff unless the error is Permanent.
type Handler interface {
	Handle(ctx context.Context, ev models.OutboxEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev models.OutboxEvent) error

func (f HandlerFunc) Handle(ctx context.Context, ev models.OutboxEvent) error {
	return f(ctx, ev)
}

// PermanentError marks a failure retrying cannot fix; the dispatcher
// dead-letters the event on first sight.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Registry maps event types to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(eventType string, h Handler) {
	r.handlers[eventType] = h
}

func (r *Registry) RegisterFunc(eventType string, f HandlerFunc) {
	r.Register(eventType, f)
}

// Handle routes the event; unknown types return ErrNoHandler.
func (r *Registry) Handle(ctx context.Context, ev models.OutboxEvent) error {
	h, ok := r.handlers[ev.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, ev.EventType)
	}
	return h.Handle(ctx, ev)
}
