package messaging

import (
	"context"

	"github.com/edu-hub/course-platform-core/internal/application/eventhandler"
	"github.com/edu-hub/course-platform-core/internal/domain/shared"
	"github.com/edu-hub/course-platform-core/pkg/logger"
	"github.com/edu-hub/course-platform-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// Binds the application's event handlers to the bus. Handlers are side
// effects and run with retry; a handler that keeps failing is logged
// and dropped, never surfaced to the emitting operation.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher registers application event handlers on an event bus.
type Dispatcher struct {
	bus     shared.EventBus
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(bus shared.EventBus, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		bus:     bus,
		retrier: retry.EventHandlerRetrier(),
		log:     log.With(logger.Component("dispatcher")),
	}
}

// Handlers groups the application event handlers wired by Register.
type Handlers struct {
	CertificateGranted  *eventhandler.OnCertificateGranted
	CostChangeConfirmed *eventhandler.OnCostChangeConfirmed
}

// Register subscribes all configured handlers to the bus.
func (d *Dispatcher) Register(handlers Handlers) error {
	if handlers.CertificateGranted != nil {
		if err := d.subscribe(shared.EventCertificateGranted, handlers.CertificateGranted.Handle); err != nil {
			return err
		}
	}

	if handlers.CostChangeConfirmed != nil {
		if err := d.subscribe(shared.EventCostChangeConfirmed, handlers.CostChangeConfirmed.Handle); err != nil {
			return err
		}
	}

	return nil
}

// subscribe wraps a handler with retry and registers it.
func (d *Dispatcher) subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	wrapped := d.withRetry(eventType, handler)
	if err := d.bus.Subscribe(eventType, wrapped); err != nil {
		return err
	}

	d.log.Info("handler registered", logger.String("event_type", string(eventType)))
	return nil
}

// withRetry wraps a handler so transient failures are retried.
func (d *Dispatcher) withRetry(eventType shared.EventType, handler shared.EventHandler) shared.EventHandler {
	return func(event shared.Event) error {
		err := d.retrier.Do(context.Background(), func(ctx context.Context) error {
			if err := handler(event); err != nil {
				return retry.Retryable(err)
			}
			return nil
		})
		if err != nil {
			d.log.Error("handler exhausted retries",
				logger.String("event_type", string(eventType)),
				logger.String("aggregate_id", event.AggregateID()),
				logger.Err(err),
			)
		}
		// Side effects never fail the emitting operation.
		return nil
	}
}
