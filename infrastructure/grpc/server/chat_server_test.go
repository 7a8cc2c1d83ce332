package server_test

import (
	"chat-gate/auth"
	"chat-gate/clock"
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/errors"
	"chat-gate/infrastructure/grpc/client"
	"chat-gate/infrastructure/grpc/server"
	"chat-gate/infrastructure/realtime"
	"chat-gate/infrastructure/search"
	"chat-gate/infrastructure/wire"
	"chat-gate/repositories"
	"chat-gate/runtime"
	"chat-gate/runtime/workers"
	"chat-gate/services"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const secret = "test-secret"

type harness struct {
	verifier *auth.TokenVerifier
	listener *bufconn.Listener
}

func startServer(t *testing.T) *harness {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	index, err := search.OpenUserIndex("", log)
	req.NoError(err)

	store := repositories.NewStore(db, log)
	registry := runtime.NewRegistry(log, time.Second)
	notifier := runtime.NewNotifier(log, 100)
	clk := clock.Real()
	admission := services.NewAdmissionService(store, notifier, clk, log, domain.DefaultRequestTTL)
	groups := services.NewGroupService(store, registry, notifier, nil, clk, log)
	messages := services.NewMessageService(store, admission, notifier, nil, nil, clk, log,
		services.MessageConfig{MaxContentLength: 1000})
	users := services.NewUserService(store, index, clk, log)
	sessions := services.NewSessionService(store, registry, log)

	ctx, cancel := context.WithCancel(context.Background())
	fanout := workers.NewEventFanout(log, notifier.Deliveries(), registry, time.Second)
	go func() { _ = fanout.Run(ctx) }()

	verifier := auth.NewTokenVerifier(secret, "chat-gate")
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.UnaryInterceptor(verifier)),
		grpc.StreamInterceptor(auth.StreamInterceptor(verifier)),
	)
	grpcServer.RegisterService(&server.ServiceDesc, server.NewChatServer(log, users, admission, groups, messages,
		realtime.NewServer(sessions, 10, log)))

	listener := bufconn.Listen(1 << 20)
	go func() { _ = grpcServer.Serve(listener) }()

	t.Cleanup(func() {
		grpcServer.Stop()
		cancel()
		_ = index.Close()
		_ = db.Close()
	})
	return &harness{verifier: verifier, listener: listener}
}

func (h *harness) client(t *testing.T, userID string) *client.ChatClient {
	t.Helper()
	token, err := h.verifier.GenerateToken(userID, nil, time.Hour)
	require.NoError(t, err)
	c, err := client.Dial("passthrough:///bufnet", token,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return h.listener.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.UpsertProfile(context.Background(), &wire.UpsertProfileRequest{
		Email:    userID + "@example.com",
		FullName: userID,
	})
	require.NoError(t, err)
	return c
}

// nextOfType reads frames until one of the wanted type shows up.
func nextOfType(t *testing.T, stream grpc.BidiStreamingClient[wire.ClientFrame, wire.EventFrame], eventType string) *wire.EventFrame {
	t.Helper()
	for {
		frame, err := stream.Recv()
		require.NoError(t, err)
		if frame.Type == eventType {
			return frame
		}
	}
}

func TestChatServer_Admission_Flow_Over_The_Wire(t *testing.T) {
	req := require.New(t)
	h := startServer(t)
	alice, bob := h.client(t, "alice"), h.client(t, "bob")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Bob is online
	stream, err := bob.Connect(ctx)
	req.NoError(err)
	presence := nextOfType(t, stream, string(event.TypeOnlineUsersChanged))
	req.Equal([]string{"bob"}, presence.OnlineUsers)

	// Alice cannot write before asking
	_, err = alice.SendDirectMessage(ctx, &wire.SendDirectRequest{ReceiverID: "bob", Text: "hi"})
	req.Equal(codes.PermissionDenied, status.Code(err))
	req.Equal(errors.ErrRequestNotSent.Message, status.Convert(err).Message())

	// Alice asks, Bob is told and accepts
	sent, err := alice.SendRequest(ctx, "bob")
	req.NoError(err)
	req.Equal(string(domain.OutcomeCreated), sent.Outcome)
	req.Equal(sent.Request.ID, nextOfType(t, stream, string(event.TypeRequestSent)).Request.ID)

	accepted, err := bob.AcceptRequest(ctx, sent.Request.ID)
	req.NoError(err)
	req.Equal(string(domain.StatusAccepted), accepted.Status)

	// Accepting twice reports the current state
	_, err = bob.AcceptRequest(ctx, sent.Request.ID)
	req.Equal(codes.AlreadyExists, status.Code(err))
	req.Equal("accepted", errors.ConflictMeta(err)["status"])

	// Now the message goes through and is pushed to Bob
	msg, err := alice.SendDirectMessage(ctx, &wire.SendDirectRequest{ReceiverID: "bob", Text: "hi"})
	req.NoError(err)
	pushed := nextOfType(t, stream, string(event.TypeNewDirectMessage))
	req.Equal(msg.ID, pushed.Message.ID)
	req.Equal("hi", pushed.Message.Text)

	history, err := bob.ListDirectMessages(ctx, "alice")
	req.NoError(err)
	req.Len(history.Messages, 1)

	statusResp, err := alice.GetRequestStatus(ctx, "bob")
	req.NoError(err)
	req.True(statusResp.CanMessage)
	req.Equal(string(domain.StatusAccepted), statusResp.Request.Status)
}

func TestChatServer_Group_Channel_Over_The_Wire(t *testing.T) {
	req := require.New(t)
	h := startServer(t)
	alice, bob := h.client(t, "alice"), h.client(t, "bob")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := bob.Connect(ctx)
	req.NoError(err)
	nextOfType(t, stream, string(event.TypeOnlineUsersChanged))

	// Bob is added while online: the server subscribes him
	group, err := alice.CreateGroup(ctx, &wire.CreateGroupRequest{Name: "Weekend", MemberIDs: []string{"bob"}})
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, group.Members)
	req.Equal(group.ID, nextOfType(t, stream, string(event.TypeGroupUpdated)).Group.ID)

	_, err = alice.SendGroupMessage(ctx, &wire.SendGroupRequest{GroupID: group.ID, Text: "saturday?"})
	req.NoError(err)
	pushed := nextOfType(t, stream, string(event.TypeNewGroupMessage))
	req.Equal("saturday?", pushed.Message.Text)
	req.Equal(group.ID, pushed.Message.GroupID)

	// The admin cannot be removed
	_, err = bob.RemoveMember(ctx, group.ID, "alice")
	req.Equal(codes.PermissionDenied, status.Code(err))
	_, err = alice.RemoveMember(ctx, group.ID, "alice")
	req.Equal(codes.InvalidArgument, status.Code(err))

	_, err = alice.GetGroup(ctx, "not-a-uuid")
	req.Equal(codes.InvalidArgument, status.Code(err))

	groups, err := bob.ListGroups(ctx)
	req.NoError(err)
	req.Len(groups.Groups, 1)
}

func TestChatServer_Requires_A_Token(t *testing.T) {
	req := require.New(t)
	h := startServer(t)
	anonymous, err := client.Dial("passthrough:///bufnet", "forged",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return h.listener.DialContext(ctx)
		}))
	req.NoError(err)
	defer anonymous.Close()

	_, err = anonymous.ListGroups(context.Background())
	req.Equal(codes.Unauthenticated, status.Code(err))
}
