// Package eventhandler contains subscribers for the post-dispatch event bus.
// Subscribers run off the request path and must never influence the
// synchronous interaction response.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hookline/interactions-gateway/internal/infrastructure/messaging"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON DISPATCH COMPLETED HANDLER
// Writes one audit row per finished dispatch.
// ═══════════════════════════════════════════════════════════════════════════

// DispatchRecord is the audit view of one completed dispatch.
type DispatchRecord struct {
	InteractionID string
	Kind          string
	Handled       bool
	Status        int
	CommandName   string
	CustomID      string
	GuildID       string
	Duration      time.Duration
	Error         string
	OccurredAt    time.Time
}

// AuditSink persists dispatch records. The PostgreSQL audit repository is the
// production implementation.
type AuditSink interface {
	Record(ctx context.Context, rec DispatchRecord) error
}

// OnDispatchCompletedHandler turns dispatch completion events into audit
// rows.
type OnDispatchCompletedHandler struct {
	sink    AuditSink
	logger  *slog.Logger
	timeout time.Duration
}

// NewOnDispatchCompletedHandler creates the handler.
func NewOnDispatchCompletedHandler(sink AuditSink, logger *slog.Logger) *OnDispatchCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnDispatchCompletedHandler{
		sink:    sink,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Register subscribes the handler on the bus.
func (h *OnDispatchCompletedHandler) Register(bus *messaging.InMemoryEventBus) error {
	return bus.Subscribe(messaging.EventDispatchCompleted, h.Handle)
}

// Handle processes one completion event. The bus calls this on a worker
// goroutine, so a fresh context with a write timeout is used.
func (h *OnDispatchCompletedHandler) Handle(event messaging.Event) error {
	completed, ok := event.(*messaging.DispatchCompletedEvent)
	if !ok {
		return fmt.Errorf("eventhandler: unexpected event type %T", event)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rec := DispatchRecord{
		InteractionID: completed.ID,
		Kind:          completed.Kind,
		Handled:       completed.Handled,
		Status:        completed.Status,
		CommandName:   completed.CommandName,
		CustomID:      completed.CustomID,
		GuildID:       completed.GuildID,
		Duration:      completed.Duration,
		Error:         completed.Error,
		OccurredAt:    completed.At,
	}

	if err := h.sink.Record(ctx, rec); err != nil {
		h.logger.Error("failed to record dispatch audit row",
			"interaction_id", rec.InteractionID,
			"error", err,
		)
		return err
	}

	return nil
}
