package workers

import (
	"chat-gate/contract"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventFanout drains the delivery queue and pushes each event to the live
// sinks of its recipients.
//
// Delivery is best effort: an offline recipient or a full or slow sink just
// misses the event. There is a single consumer, so events reach a given sink
// in the order they were enqueued.
type EventFanout struct {
	log         *slog.Logger
	deliveries  <-chan contract.Delivery
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, deliveries <-chan contract.Delivery,
	registry contract.IRegistry, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, deliveries: deliveries, registry: registry, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case d := <-w.deliveries:
			w.Fanout(ctx, d)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout resolves the recipients at delivery time: a channel delivery reaches
// the members of the delivery subscribed now, a user delivery whoever of them
// is online now.
func (w *EventFanout) Fanout(ctx context.Context, d contract.Delivery) {
	var sinks []contract.EventSink
	if d.GroupID != uuid.Nil {
		sinks = w.registry.ChannelSinks(d.GroupID, d.UserIDs)
	} else {
		sinks = w.registry.LookupMany(d.UserIDs)
	}

	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, d.Event); err != nil {
			w.log.Debug("event not delivered",
				"type", d.Event.Type(),
				"error", err)
		}
		cancel()
	}
}
