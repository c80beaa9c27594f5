package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/hookline/interactions-gateway/internal/application/dispatch"
)

// BusObserver bridges the dispatcher to the event bus: every completed
// dispatch becomes a DispatchCompletedEvent. With an async bus the publish
// returns immediately, so the interaction response is never delayed by
// observers.
type BusObserver struct {
	bus    *InMemoryEventBus
	logger *slog.Logger
}

// NewBusObserver creates an observer that publishes onto bus.
func NewBusObserver(bus *InMemoryEventBus, logger *slog.Logger) *BusObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusObserver{bus: bus, logger: logger}
}

// DispatchCompleted publishes the completion record.
func (o *BusObserver) DispatchCompleted(_ context.Context, rec dispatch.Completion) {
	event := &DispatchCompletedEvent{
		ID:          rec.InteractionID,
		Kind:        rec.Kind.String(),
		Handled:     rec.Handled,
		Status:      rec.Status,
		CommandName: rec.CommandName,
		CustomID:    rec.CustomID,
		GuildID:     rec.GuildID,
		Duration:    rec.Duration,
		At:          time.Now().UTC(),
	}
	if rec.Err != nil {
		event.Error = rec.Err.Error()
	}

	if err := o.bus.Publish(event); err != nil {
		o.logger.Error("failed to publish dispatch completion", "error", err)
	}
}
