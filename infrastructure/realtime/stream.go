// Package realtime runs the server side of a live client connection,
// whatever carries it (gRPC stream or websocket).
package realtime

import (
	"chat-gate/infrastructure/wire"
	"chat-gate/services"
	"chat-gate/sink"
	"context"
	"errors"
	"io"
	"log/slog"
)

// Stream is one bidirectional client connection.
// Send is only called from the goroutine running Serve.
type Stream interface {
	Send(*wire.EventFrame) error
	Recv() (*wire.ClientFrame, error)
}

type Server struct {
	sessions   services.ISessionService
	bufferSize int
	log        *slog.Logger
}

func NewServer(sessions services.ISessionService, bufferSize int, log *slog.Logger) *Server {
	return &Server{sessions: sessions, bufferSize: bufferSize, log: log}
}

// Serve registers userID as online for the lifetime of stream, forwards its
// events and honors its channel requests. It returns nil when the client
// goes away cleanly.
func (s *Server) Serve(ctx context.Context, userID string, stream Stream) error {
	conn := sink.NewConnectionSink(s.log, userID, s.bufferSize)
	if err := s.sessions.Connect(ctx, userID, conn); err != nil {
		return err
	}
	defer s.sessions.Disconnect(userID, conn)

	frames := make(chan *wire.ClientFrame)
	recvErr := make(chan error, 1)
	go func() {
		for {
			frame, err := stream.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Client disconnected", "user_id", userID)
			return nil
		case err := <-recvErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case frame := <-frames:
			if err := s.handle(ctx, userID, frame, stream); err != nil {
				return err
			}
		case evt := <-conn.Events:
			frame, ok := wire.FromEvent(evt)
			if !ok {
				s.log.Warn("Unknown event type", "type", evt.Type())
				continue
			}
			if err := stream.Send(&frame); err != nil {
				s.log.Error("failed to push event to stream",
					"user_id", userID,
					"type", frame.Type,
					"error", err)
				return err
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, userID string, frame *wire.ClientFrame, stream Stream) error {
	switch frame.Type {
	case wire.JoinGroupChannels:
		joined, err := s.sessions.JoinGroupChannels(ctx, userID, wire.GroupUUIDs(frame.GroupIDs))
		if err != nil {
			return err
		}
		ack := wire.Joined(joined)
		return stream.Send(&ack)
	case wire.LeaveGroupChannel:
		if ids := wire.GroupUUIDs([]string{frame.GroupID}); len(ids) == 1 {
			s.sessions.LeaveGroupChannel(userID, ids[0])
		}
		return nil
	default:
		s.log.Debug("Ignoring client frame", "user_id", userID, "type", frame.Type)
		return nil
	}
}
