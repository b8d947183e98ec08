package cmd

import (
	"log/slog"

	"github.com/frahmantamala/credify/internal/core/events"
	"github.com/frahmantamala/credify/internal/observability"
)

// newEventBus wires the subscribers every process shares: the audit log and,
// when given, the ledger metrics.
func newEventBus(logger *slog.Logger, metrics *observability.Metrics) *events.EventBus {
	bus := events.NewEventBus(logger)
	bus.SubscribeAll(events.NewAuditHandler(logger.With("component", "audit")), events.AllEventTypes...)
	if metrics != nil {
		metrics.Subscribe(bus)
	}
	return bus
}
