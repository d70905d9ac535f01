package services

import (
	"context"

	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
	"github.com/okaimono/marketplace-backend/internal/realtime"
	"github.com/okaimono/marketplace-backend/internal/realtime/bus"
)

// Notifier publishes realtime events after successful engine operations.
// Publishing is best-effort: failures are logged and never fail the
// operation that produced the event.
type Notifier interface {
	Publish(ctx context.Context, msg realtime.Message)
}

type hubNotifier struct {
	log *logger.Logger
	hub *realtime.Hub
	bus bus.Bus
}

// NewNotifier fans events out to the local hub and, when a bus is
// configured, to the other API instances.
func NewNotifier(log *logger.Logger, hub *realtime.Hub, eventBus bus.Bus) Notifier {
	return &hubNotifier{
		log: log.With("service", "Notifier"),
		hub: hub,
		bus: eventBus,
	}
}

func (n *hubNotifier) Publish(ctx context.Context, msg realtime.Message) {
	if n.hub != nil {
		n.hub.Publish(msg)
	}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("event bus publish failed", "event", msg.Event, "error", err)
		}
	}
}
