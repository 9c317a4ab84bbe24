package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Dispatcher routes lifecycle events to host-supplied handlers. Every
// handler is optional; a missing handler drops the event silently. A
// handler that panics is recovered and logged so one broken callback
// cannot affect sibling events or the verification flow that emitted
// the event.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	logger   Logger
}

func NewDispatcher(logger Logger) *Dispatcher {
	return &Dispatcher{
		handlers: map[string]EventHandler{},
		logger:   logger,
	}
}

func (d *Dispatcher) On(event string, handler EventHandler) error {
	if d == nil {
		return InternalError("core: dispatcher is nil", nil)
	}
	event = strings.TrimSpace(event)
	if !isKnownEvent(event) {
		return ValidationError(
			fmt.Sprintf("core: unknown event %q", event),
			map[string]any{"event": event},
		)
	}
	if handler == nil {
		return ValidationError("core: event handler is nil", map[string]any{"event": event})
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = handler
	return nil
}

func (d *Dispatcher) Emit(ctx context.Context, event string, evt Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	handler := d.handlers[strings.TrimSpace(event)]
	d.mu.RUnlock()
	if handler == nil {
		return
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			d.logHandlerFailure(event, evt, fmt.Errorf("handler panic: %v", recovered))
		}
	}()
	handler(ctx, evt)
}

// EmitError fires the error event with an operation tag identifying the
// failing operation, implementing the dual-channel reporting contract.
func (d *Dispatcher) EmitError(ctx context.Context, operation string, provider string, err error, raw any) {
	if d == nil || err == nil {
		return
	}
	d.Emit(ctx, EventError, Event{
		Provider:  provider,
		Operation: operation,
		Err:       err,
		Raw:       raw,
		Metadata:  map[string]any{},
	})
}

func (d *Dispatcher) logHandlerFailure(event string, evt Event, err error) {
	if d.logger == nil {
		return
	}
	logger := d.logger
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(map[string]any{
			"event":          event,
			"provider":       evt.Provider,
			"transaction_id": evt.TransactionID,
		})
	}
	logger.Error("event handler failed", "error", err.Error())
}

func isKnownEvent(event string) bool {
	switch event {
	case EventPaymentCreated,
		EventPaymentCompleted,
		EventPaymentFailed,
		EventPaymentCancelled,
		EventSubscriptionCreated,
		EventSubscriptionActivated,
		EventSubscriptionCancelled,
		EventError:
		return true
	default:
		return false
	}
}

var _ ErrorReporter = (*dispatcherReporter)(nil)

// dispatcherReporter adapts the dispatcher to the ErrorReporter
// contract used by collaborators that only report failures.
type dispatcherReporter struct {
	dispatcher *Dispatcher
	provider   string
}

func NewErrorReporter(dispatcher *Dispatcher, provider string) ErrorReporter {
	return &dispatcherReporter{dispatcher: dispatcher, provider: strings.TrimSpace(provider)}
}

func (r *dispatcherReporter) ReportError(ctx context.Context, operation string, provider string, err error, raw any) {
	if r == nil || r.dispatcher == nil {
		return
	}
	if strings.TrimSpace(provider) == "" {
		provider = r.provider
	}
	r.dispatcher.EmitError(ctx, operation, provider, err, raw)
}
