package server

import (
	"chat-gate/auth"
	"chat-gate/domain"
	"chat-gate/errors"
	"chat-gate/infrastructure/media"
	"chat-gate/infrastructure/realtime"
	"chat-gate/infrastructure/wire"
	"chat-gate/services"
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/grpc"
)

// ChatServer is the gRPC surface of the chat gate. Every handler reads the
// caller identity placed by the auth interceptors, calls one service and maps
// the error.
type ChatServer struct {
	users     services.IUserService
	admission services.IAdmissionService
	groups    services.IGroupService
	messages  services.IMessageService
	realtime  *realtime.Server
	log       *slog.Logger
}

func NewChatServer(log *slog.Logger, users services.IUserService, admission services.IAdmissionService,
	groups services.IGroupService, messages services.IMessageService, rt *realtime.Server) *ChatServer {
	return &ChatServer{
		users:     users,
		admission: admission,
		groups:    groups,
		messages:  messages,
		realtime:  rt,
		log:       log,
	}
}

func (s *ChatServer) UpsertProfile(ctx context.Context, req *wire.UpsertProfileRequest) (*wire.User, error) {
	return call(s, ctx, "upsert profile", func(userID string) (*wire.User, error) {
		u, err := s.users.UpsertProfile(ctx, domain.UpsertProfileCommand{
			UserID:     userID,
			Email:      req.Email,
			FullName:   req.FullName,
			ProfilePic: req.ProfilePic,
		})
		return lo.ToPtr(wire.FromUser(u)), err
	})
}

func (s *ChatServer) GetUser(ctx context.Context, req *wire.UserRequest) (*wire.User, error) {
	return call(s, ctx, "get user", func(string) (*wire.User, error) {
		u, err := s.users.Get(ctx, req.UserID)
		return lo.ToPtr(wire.FromUser(u)), err
	})
}

func (s *ChatServer) SearchUsers(ctx context.Context, req *wire.SearchUsersRequest) (*wire.UsersResponse, error) {
	return call(s, ctx, "search users", func(userID string) (*wire.UsersResponse, error) {
		users, err := s.users.Search(ctx, userID, req.Query)
		return &wire.UsersResponse{Users: wire.FromUsers(users)}, err
	})
}

func (s *ChatServer) ListContacts(ctx context.Context, _ *wire.Empty) (*wire.UsersResponse, error) {
	return call(s, ctx, "list contacts", func(userID string) (*wire.UsersResponse, error) {
		users, err := s.users.ListContacts(ctx, userID)
		return &wire.UsersResponse{Users: wire.FromUsers(users)}, err
	})
}

func (s *ChatServer) CreateGroup(ctx context.Context, req *wire.CreateGroupRequest) (*wire.Group, error) {
	return call(s, ctx, "create group", func(userID string) (*wire.Group, error) {
		picture, err := media.DecodePayload(req.Picture)
		if err != nil {
			return nil, err
		}
		g, err := s.groups.Create(ctx, domain.CreateGroupCommand{
			AdminID:     userID,
			Name:        req.Name,
			Description: req.Description,
			MemberIDs:   req.MemberIDs,
			Picture:     picture,
		})
		return lo.ToPtr(wire.FromGroup(g)), err
	})
}

func (s *ChatServer) ListGroups(ctx context.Context, _ *wire.Empty) (*wire.GroupsResponse, error) {
	return call(s, ctx, "list groups", func(userID string) (*wire.GroupsResponse, error) {
		groups, err := s.groups.ListForUser(ctx, userID)
		return &wire.GroupsResponse{Groups: wire.FromGroups(groups)}, err
	})
}

func (s *ChatServer) GetGroup(ctx context.Context, req *wire.GroupRequest) (*wire.Group, error) {
	return call(s, ctx, "get group", func(userID string) (*wire.Group, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		g, err := s.groups.Get(ctx, groupID, userID)
		return lo.ToPtr(wire.FromGroup(g)), err
	})
}

func (s *ChatServer) UpdateGroup(ctx context.Context, req *wire.UpdateGroupRequest) (*wire.Group, error) {
	return call(s, ctx, "update group", func(userID string) (*wire.Group, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		picture, err := media.DecodePayload(req.Picture)
		if err != nil {
			return nil, err
		}
		g, err := s.groups.Update(ctx, domain.UpdateGroupCommand{
			GroupID:     groupID,
			ActorID:     userID,
			Name:        req.Name,
			Description: req.Description,
			Picture:     picture,
		})
		return lo.ToPtr(wire.FromGroup(g)), err
	})
}

func (s *ChatServer) DeleteGroup(ctx context.Context, req *wire.GroupRequest) (*wire.Empty, error) {
	return call(s, ctx, "delete group", func(userID string) (*wire.Empty, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		return &wire.Empty{}, s.groups.Delete(ctx, groupID, userID)
	})
}

func (s *ChatServer) AddMembers(ctx context.Context, req *wire.MembersRequest) (*wire.Group, error) {
	return call(s, ctx, "add members", func(userID string) (*wire.Group, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		g, err := s.groups.AddMembers(ctx, groupID, userID, req.MemberIDs)
		return lo.ToPtr(wire.FromGroup(g)), err
	})
}

func (s *ChatServer) RemoveMember(ctx context.Context, req *wire.MemberRequest) (*wire.Group, error) {
	return call(s, ctx, "remove member", func(userID string) (*wire.Group, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		g, err := s.groups.RemoveMember(ctx, groupID, userID, req.MemberID)
		return lo.ToPtr(wire.FromGroup(g)), err
	})
}

func (s *ChatServer) LeaveGroup(ctx context.Context, req *wire.GroupRequest) (*wire.Empty, error) {
	return call(s, ctx, "leave group", func(userID string) (*wire.Empty, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		return &wire.Empty{}, s.groups.Leave(ctx, groupID, userID)
	})
}

func (s *ChatServer) SendDirectMessage(ctx context.Context, req *wire.SendDirectRequest) (*wire.Message, error) {
	return call(s, ctx, "send direct message", func(userID string) (*wire.Message, error) {
		image, video, err := attachments(req.Image, req.Video)
		if err != nil {
			return nil, err
		}
		m, err := s.messages.SendDirect(ctx, domain.SendDirectCommand{
			SenderID:   userID,
			ReceiverID: req.ReceiverID,
			Text:       req.Text,
			Image:      image,
			Video:      video,
		})
		return lo.ToPtr(wire.FromMessage(m)), err
	})
}

func (s *ChatServer) ListDirectMessages(ctx context.Context, req *wire.UserRequest) (*wire.MessagesResponse, error) {
	return call(s, ctx, "list direct messages", func(userID string) (*wire.MessagesResponse, error) {
		messages, err := s.messages.ListDirect(ctx, userID, req.UserID)
		return &wire.MessagesResponse{Messages: wire.FromMessages(messages)}, err
	})
}

func (s *ChatServer) SendGroupMessage(ctx context.Context, req *wire.SendGroupRequest) (*wire.Message, error) {
	return call(s, ctx, "send group message", func(userID string) (*wire.Message, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		image, video, err := attachments(req.Image, req.Video)
		if err != nil {
			return nil, err
		}
		m, err := s.messages.SendGroup(ctx, domain.SendGroupCommand{
			SenderID: userID,
			GroupID:  groupID,
			Text:     req.Text,
			Image:    image,
			Video:    video,
		})
		return lo.ToPtr(wire.FromMessage(m)), err
	})
}

func (s *ChatServer) ListGroupMessages(ctx context.Context, req *wire.GroupRequest) (*wire.MessagesResponse, error) {
	return call(s, ctx, "list group messages", func(userID string) (*wire.MessagesResponse, error) {
		groupID, err := wire.ParseID(req.GroupID, errors.ErrInvalidGroupID)
		if err != nil {
			return nil, err
		}
		messages, err := s.messages.ListGroup(ctx, groupID, userID)
		return &wire.MessagesResponse{Messages: wire.FromMessages(messages)}, err
	})
}

func (s *ChatServer) SendRequest(ctx context.Context, req *wire.UserRequest) (*wire.SendRequestResponse, error) {
	return call(s, ctx, "send request", func(userID string) (*wire.SendRequestResponse, error) {
		result, err := s.admission.SendRequest(ctx, userID, req.UserID)
		return &wire.SendRequestResponse{
			Request: wire.FromRequest(result.Request),
			Outcome: string(result.Outcome),
		}, err
	})
}

func (s *ChatServer) AcceptRequest(ctx context.Context, req *wire.RequestIDRequest) (*wire.Request, error) {
	return s.answer(ctx, "accept request", req, s.admission.AcceptRequest)
}

func (s *ChatServer) RejectRequest(ctx context.Context, req *wire.RequestIDRequest) (*wire.Request, error) {
	return s.answer(ctx, "reject request", req, s.admission.RejectRequest)
}

func (s *ChatServer) CancelRequest(ctx context.Context, req *wire.RequestIDRequest) (*wire.Request, error) {
	return s.answer(ctx, "cancel request", req, s.admission.CancelRequest)
}

func (s *ChatServer) GetRequestStatus(ctx context.Context, req *wire.UserRequest) (*wire.RequestStatusResponse, error) {
	return call(s, ctx, "get request status", func(userID string) (*wire.RequestStatusResponse, error) {
		r, err := s.admission.GetStatus(ctx, userID, req.UserID)
		if err != nil {
			return nil, err
		}
		canMessage, err := s.admission.CanExchangeDirectMessages(ctx, userID, req.UserID)
		if err != nil {
			return nil, err
		}
		resp := &wire.RequestStatusResponse{CanMessage: canMessage}
		if r != nil {
			resp.Request = lo.ToPtr(wire.FromRequest(*r))
		}
		return resp, nil
	})
}

func (s *ChatServer) ListIncomingRequests(ctx context.Context, _ *wire.Empty) (*wire.RequestsResponse, error) {
	return call(s, ctx, "list incoming requests", func(userID string) (*wire.RequestsResponse, error) {
		requests, err := s.admission.ListIncoming(ctx, userID)
		return &wire.RequestsResponse{Requests: wire.FromRequests(requests)}, err
	})
}

func (s *ChatServer) ListOutgoingRequests(ctx context.Context, _ *wire.Empty) (*wire.RequestsResponse, error) {
	return call(s, ctx, "list outgoing requests", func(userID string) (*wire.RequestsResponse, error) {
		requests, err := s.admission.ListOutgoing(ctx, userID)
		return &wire.RequestsResponse{Requests: wire.FromRequests(requests)}, err
	})
}

// Connect establishes the long-lived stream for real-time delivery. It blocks
// until the client disconnects; the registry entry is removed on the way out.
func (s *ChatServer) Connect(stream grpc.BidiStreamingServer[wire.ClientFrame, wire.EventFrame]) error {
	ctx := stream.Context()
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	if err = s.realtime.Serve(ctx, userID, stream); err != nil {
		s.log.Debug("Stream closed", "user_id", userID, "error", err)
		return errors.MapToGRPCError(err)
	}
	return nil
}

func (s *ChatServer) answer(ctx context.Context, op string, req *wire.RequestIDRequest,
	transition func(context.Context, uuid.UUID, string) (domain.ConversationRequest, error)) (*wire.Request, error) {
	return call(s, ctx, op, func(userID string) (*wire.Request, error) {
		requestID, err := wire.ParseID(req.RequestID, errors.ErrInvalidRequestID)
		if err != nil {
			return nil, err
		}
		r, err := transition(ctx, requestID, userID)
		return lo.ToPtr(wire.FromRequest(r)), err
	})
}

// call resolves the caller and maps the outcome of fn to a gRPC status.
func call[Resp any](s *ChatServer, ctx context.Context, op string, fn func(userID string) (*Resp, error)) (*Resp, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	resp, err := fn(userID)
	if err != nil {
		if errors.KindOf(err) == errors.KindInternal {
			s.log.Error("request failed", "op", op, "user_id", userID, "error", err)
		}
		return nil, errors.MapToGRPCError(err)
	}
	return resp, nil
}

func attachments(image, video string) ([]byte, []byte, error) {
	imageBytes, err := media.DecodePayload(image)
	if err != nil {
		return nil, nil, err
	}
	videoBytes, err := media.DecodePayload(video)
	if err != nil {
		return nil, nil, err
	}
	return imageBytes, videoBytes, nil
}
