package realtime

import (
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/infrastructure/wire"
	"chat-gate/repositories"
	"chat-gate/runtime"
	"chat-gate/services"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeStream feeds client frames from in and records server frames in out.
type fakeStream struct {
	in  chan *wire.ClientFrame
	out chan *wire.EventFrame
}

func newFakeStream() *fakeStream {
	return &fakeStream{in: make(chan *wire.ClientFrame), out: make(chan *wire.EventFrame, 10)}
}

func (s *fakeStream) Send(f *wire.EventFrame) error {
	s.out <- f
	return nil
}

func (s *fakeStream) Recv() (*wire.ClientFrame, error) {
	f, ok := <-s.in
	if !ok {
		return nil, io.EOF
	}
	return f, nil
}

func (s *fakeStream) next(t *testing.T) *wire.EventFrame {
	select {
	case f := <-s.out:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestServe_Lifecycle(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewStore(db, log)
	registry := runtime.NewRegistry(log, time.Second)
	server := NewServer(services.NewSessionService(store, registry, log), 10, log)

	// Given a group u1 belongs to, created while u1 is offline
	group, err := domain.NewGroup("u2", "G", "", []string{"u1"}, time.Now())
	req.NoError(err)
	req.NoError(store.Update(func(tx *repositories.Tx) error { return tx.PutGroup(group) }))

	// When u1 connects
	stream := newFakeStream()
	done := make(chan error, 1)
	go func() { done <- server.Serve(context.Background(), "u1", stream) }()

	// Then the presence snapshot is pushed and the group channel joined
	frame := stream.next(t)
	req.Equal(string(event.TypeOnlineUsersChanged), frame.Type)
	req.Equal([]string{"u1"}, frame.OnlineUsers)
	req.Eventually(func() bool { return len(registry.Channels("u1")) == 1 }, time.Second, 10*time.Millisecond)

	// Leaving then joining again is acknowledged
	stream.in <- &wire.ClientFrame{Type: wire.LeaveGroupChannel, GroupID: group.ID.String()}
	stream.in <- &wire.ClientFrame{Type: wire.JoinGroupChannels, GroupIDs: []string{group.ID.String(), "garbage"}}
	ack := stream.next(t)
	req.Equal(wire.TypeGroupChannelsJoined, ack.Type)
	req.Equal([]string{group.ID.String()}, ack.GroupIDs)

	// Events reaching the sink are forwarded as frames
	sink, ok := registry.Lookup("u1")
	req.True(ok)
	msg, err := domain.NewGroupMessage("u2", group.ID, domain.Content{Text: "hello"}, time.Now())
	req.NoError(err)
	req.NoError(sink.Consume(context.Background(), event.NewGroupMessage{Message: msg}))
	frame = stream.next(t)
	req.Equal(string(event.TypeNewGroupMessage), frame.Type)
	req.Equal("hello", frame.Message.Text)

	// Closing the client side ends the session
	close(stream.in)
	req.NoError(<-done)
	req.Empty(registry.OnlineUsers())
}
