package client

import (
	"chat-gate/infrastructure/wire"
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ChatClient calls the ChatGate service with a bearer token on every call.
type ChatClient struct {
	conn *grpc.ClientConn
}

// bearer attaches the token as the authorization header.
type bearer string

func (b bearer) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearer) RequireTransportSecurity() bool { return false }

// Dial connects to target over plaintext. Extra options are appended, tests
// use them to plug a bufconn dialer.
func Dial(target, token string, opts ...grpc.DialOption) (*ChatClient, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
		grpc.WithPerRPCCredentials(bearer(token)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &ChatClient{conn: conn}, nil
}

func (c *ChatClient) Close() error { return c.conn.Close() }

func invoke[Resp any](ctx context.Context, c *ChatClient, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.conn.Invoke(ctx, wire.FullMethod(method), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ChatClient) UpsertProfile(ctx context.Context, req *wire.UpsertProfileRequest) (*wire.User, error) {
	return invoke[wire.User](ctx, c, "UpsertProfile", req)
}

func (c *ChatClient) GetUser(ctx context.Context, userID string) (*wire.User, error) {
	return invoke[wire.User](ctx, c, "GetUser", &wire.UserRequest{UserID: userID})
}

func (c *ChatClient) SearchUsers(ctx context.Context, query string) (*wire.UsersResponse, error) {
	return invoke[wire.UsersResponse](ctx, c, "SearchUsers", &wire.SearchUsersRequest{Query: query})
}

func (c *ChatClient) ListContacts(ctx context.Context) (*wire.UsersResponse, error) {
	return invoke[wire.UsersResponse](ctx, c, "ListContacts", &wire.Empty{})
}

func (c *ChatClient) CreateGroup(ctx context.Context, req *wire.CreateGroupRequest) (*wire.Group, error) {
	return invoke[wire.Group](ctx, c, "CreateGroup", req)
}

func (c *ChatClient) ListGroups(ctx context.Context) (*wire.GroupsResponse, error) {
	return invoke[wire.GroupsResponse](ctx, c, "ListGroups", &wire.Empty{})
}

func (c *ChatClient) GetGroup(ctx context.Context, groupID string) (*wire.Group, error) {
	return invoke[wire.Group](ctx, c, "GetGroup", &wire.GroupRequest{GroupID: groupID})
}

func (c *ChatClient) UpdateGroup(ctx context.Context, req *wire.UpdateGroupRequest) (*wire.Group, error) {
	return invoke[wire.Group](ctx, c, "UpdateGroup", req)
}

func (c *ChatClient) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := invoke[wire.Empty](ctx, c, "DeleteGroup", &wire.GroupRequest{GroupID: groupID})
	return err
}

func (c *ChatClient) AddMembers(ctx context.Context, groupID string, memberIDs ...string) (*wire.Group, error) {
	return invoke[wire.Group](ctx, c, "AddMembers", &wire.MembersRequest{GroupID: groupID, MemberIDs: memberIDs})
}

func (c *ChatClient) RemoveMember(ctx context.Context, groupID, memberID string) (*wire.Group, error) {
	return invoke[wire.Group](ctx, c, "RemoveMember", &wire.MemberRequest{GroupID: groupID, MemberID: memberID})
}

func (c *ChatClient) LeaveGroup(ctx context.Context, groupID string) error {
	_, err := invoke[wire.Empty](ctx, c, "LeaveGroup", &wire.GroupRequest{GroupID: groupID})
	return err
}

func (c *ChatClient) SendDirectMessage(ctx context.Context, req *wire.SendDirectRequest) (*wire.Message, error) {
	return invoke[wire.Message](ctx, c, "SendDirectMessage", req)
}

func (c *ChatClient) ListDirectMessages(ctx context.Context, userID string) (*wire.MessagesResponse, error) {
	return invoke[wire.MessagesResponse](ctx, c, "ListDirectMessages", &wire.UserRequest{UserID: userID})
}

func (c *ChatClient) SendGroupMessage(ctx context.Context, req *wire.SendGroupRequest) (*wire.Message, error) {
	return invoke[wire.Message](ctx, c, "SendGroupMessage", req)
}

func (c *ChatClient) ListGroupMessages(ctx context.Context, groupID string) (*wire.MessagesResponse, error) {
	return invoke[wire.MessagesResponse](ctx, c, "ListGroupMessages", &wire.GroupRequest{GroupID: groupID})
}

func (c *ChatClient) SendRequest(ctx context.Context, recipientID string) (*wire.SendRequestResponse, error) {
	return invoke[wire.SendRequestResponse](ctx, c, "SendRequest", &wire.UserRequest{UserID: recipientID})
}

func (c *ChatClient) AcceptRequest(ctx context.Context, requestID string) (*wire.Request, error) {
	return invoke[wire.Request](ctx, c, "AcceptRequest", &wire.RequestIDRequest{RequestID: requestID})
}

func (c *ChatClient) RejectRequest(ctx context.Context, requestID string) (*wire.Request, error) {
	return invoke[wire.Request](ctx, c, "RejectRequest", &wire.RequestIDRequest{RequestID: requestID})
}

func (c *ChatClient) CancelRequest(ctx context.Context, requestID string) (*wire.Request, error) {
	return invoke[wire.Request](ctx, c, "CancelRequest", &wire.RequestIDRequest{RequestID: requestID})
}

func (c *ChatClient) GetRequestStatus(ctx context.Context, userID string) (*wire.RequestStatusResponse, error) {
	return invoke[wire.RequestStatusResponse](ctx, c, "GetRequestStatus", &wire.UserRequest{UserID: userID})
}

func (c *ChatClient) ListIncomingRequests(ctx context.Context) (*wire.RequestsResponse, error) {
	return invoke[wire.RequestsResponse](ctx, c, "ListIncomingRequests", &wire.Empty{})
}

func (c *ChatClient) ListOutgoingRequests(ctx context.Context) (*wire.RequestsResponse, error) {
	return invoke[wire.RequestsResponse](ctx, c, "ListOutgoingRequests", &wire.Empty{})
}

var connectDesc = grpc.StreamDesc{
	StreamName:    "Connect",
	ServerStreams: true,
	ClientStreams: true,
}

// Connect opens the realtime stream. The stream lives until ctx is cancelled
// or CloseSend is called.
func (c *ChatClient) Connect(ctx context.Context) (grpc.BidiStreamingClient[wire.ClientFrame, wire.EventFrame], error) {
	stream, err := c.conn.NewStream(ctx, &connectDesc, wire.FullMethod("Connect"))
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[wire.ClientFrame, wire.EventFrame]{ClientStream: stream}, nil
}
