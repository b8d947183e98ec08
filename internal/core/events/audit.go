package events

import (
	"context"
	"log/slog"
	"sort"
)

// AllEventTypes is every event the ledger publishes.
var AllEventTypes = append(append([]string{}, LedgerMutations...), EventTypeReminderGenerated)

// NewAuditHandler writes one log line per event with its payload as attributes.
func NewAuditHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		attrs := []any{
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
		}

		if data, ok := event.Payload().(map[string]interface{}); ok {
			keys := make([]string, 0, len(data))
			for k := range data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, k, data[k])
			}
		}

		logger.InfoContext(ctx, "ledger event", attrs...)
		return nil
	}
}
