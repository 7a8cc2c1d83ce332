package server

import (
	"chat-gate/infrastructure/wire"
	"context"

	"google.golang.org/grpc"
)

// ChatGateServer is the server API of the ChatGate service. Frames are plain
// JSON structs carried by the codec of the wire package.
type ChatGateServer interface {
	UpsertProfile(context.Context, *wire.UpsertProfileRequest) (*wire.User, error)
	GetUser(context.Context, *wire.UserRequest) (*wire.User, error)
	SearchUsers(context.Context, *wire.SearchUsersRequest) (*wire.UsersResponse, error)
	ListContacts(context.Context, *wire.Empty) (*wire.UsersResponse, error)

	CreateGroup(context.Context, *wire.CreateGroupRequest) (*wire.Group, error)
	ListGroups(context.Context, *wire.Empty) (*wire.GroupsResponse, error)
	GetGroup(context.Context, *wire.GroupRequest) (*wire.Group, error)
	UpdateGroup(context.Context, *wire.UpdateGroupRequest) (*wire.Group, error)
	DeleteGroup(context.Context, *wire.GroupRequest) (*wire.Empty, error)
	AddMembers(context.Context, *wire.MembersRequest) (*wire.Group, error)
	RemoveMember(context.Context, *wire.MemberRequest) (*wire.Group, error)
	LeaveGroup(context.Context, *wire.GroupRequest) (*wire.Empty, error)

	SendDirectMessage(context.Context, *wire.SendDirectRequest) (*wire.Message, error)
	ListDirectMessages(context.Context, *wire.UserRequest) (*wire.MessagesResponse, error)
	SendGroupMessage(context.Context, *wire.SendGroupRequest) (*wire.Message, error)
	ListGroupMessages(context.Context, *wire.GroupRequest) (*wire.MessagesResponse, error)

	SendRequest(context.Context, *wire.UserRequest) (*wire.SendRequestResponse, error)
	AcceptRequest(context.Context, *wire.RequestIDRequest) (*wire.Request, error)
	RejectRequest(context.Context, *wire.RequestIDRequest) (*wire.Request, error)
	CancelRequest(context.Context, *wire.RequestIDRequest) (*wire.Request, error)
	GetRequestStatus(context.Context, *wire.UserRequest) (*wire.RequestStatusResponse, error)
	ListIncomingRequests(context.Context, *wire.Empty) (*wire.RequestsResponse, error)
	ListOutgoingRequests(context.Context, *wire.Empty) (*wire.RequestsResponse, error)

	Connect(grpc.BidiStreamingServer[wire.ClientFrame, wire.EventFrame]) error
}

// ServiceDesc is registered with grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*ChatGateServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("UpsertProfile", ChatGateServer.UpsertProfile),
		unary("GetUser", ChatGateServer.GetUser),
		unary("SearchUsers", ChatGateServer.SearchUsers),
		unary("ListContacts", ChatGateServer.ListContacts),
		unary("CreateGroup", ChatGateServer.CreateGroup),
		unary("ListGroups", ChatGateServer.ListGroups),
		unary("GetGroup", ChatGateServer.GetGroup),
		unary("UpdateGroup", ChatGateServer.UpdateGroup),
		unary("DeleteGroup", ChatGateServer.DeleteGroup),
		unary("AddMembers", ChatGateServer.AddMembers),
		unary("RemoveMember", ChatGateServer.RemoveMember),
		unary("LeaveGroup", ChatGateServer.LeaveGroup),
		unary("SendDirectMessage", ChatGateServer.SendDirectMessage),
		unary("ListDirectMessages", ChatGateServer.ListDirectMessages),
		unary("SendGroupMessage", ChatGateServer.SendGroupMessage),
		unary("ListGroupMessages", ChatGateServer.ListGroupMessages),
		unary("SendRequest", ChatGateServer.SendRequest),
		unary("AcceptRequest", ChatGateServer.AcceptRequest),
		unary("RejectRequest", ChatGateServer.RejectRequest),
		unary("CancelRequest", ChatGateServer.CancelRequest),
		unary("GetRequestStatus", ChatGateServer.GetRequestStatus),
		unary("ListIncomingRequests", ChatGateServer.ListIncomingRequests),
		unary("ListOutgoingRequests", ChatGateServer.ListOutgoingRequests),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "chatgate/v1/chat_gate.json",
}

// unary builds the descriptor of a request/response method the way protoc
// generated handlers do: decode, then go through the interceptor chain.
func unary[Req, Resp any](name string, call func(ChatGateServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatGateServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: wire.FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatGateServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatGateServer).Connect(&grpc.GenericServerStream[wire.ClientFrame, wire.EventFrame]{ServerStream: stream})
}
