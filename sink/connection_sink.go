package sink

import (
	"chat-gate/domain/event"
	"context"
	"errors"
	"log/slog"
)

var ErrBackpressure = errors.New("connection buffer is full")

// ConnectionSink is the EventSink of one live client connection, whatever the
// transport. The fan-out writes into Events, the transport goroutine drains
// it toward the socket.
type ConnectionSink struct {
	log    *slog.Logger
	userID string
	Events chan event.DomainEvent
}

func NewConnectionSink(log *slog.Logger, userID string, bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		log:    log,
		userID: userID,
		Events: make(chan event.DomainEvent, bufferSize),
	}
}

// Consume never blocks: a full buffer means the client is too slow and the
// event is dropped for this connection only.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("backpressure: dropping event",
			"user_id", s.userID,
			"type", e.Type(),
			"buffer", cap(s.Events))
		return ErrBackpressure
	}
}
