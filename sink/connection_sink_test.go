package sink

import (
	"chat-gate/domain/event"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Buffers_Then_Drops(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(slog.Default(), "alice", 1)
	first := event.OnlineUsersChanged{UserIDs: []string{"alice"}}

	// Given the buffer has room for one event
	req.NoError(s.Consume(context.Background(), first))

	// When a second event arrives before the transport drained the first
	err := s.Consume(context.Background(), event.OnlineUsersChanged{})

	// Then it is dropped without blocking and the first one is intact
	req.ErrorIs(err, ErrBackpressure)
	req.Equal(first, <-s.Events)
}
