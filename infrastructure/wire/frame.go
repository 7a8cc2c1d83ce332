package wire

import (
	"chat-gate/domain/event"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Client frame types, sent on the realtime stream.
const (
	JoinGroupChannels = "joinGroupChannels"
	LeaveGroupChannel = "leaveGroupChannel"
)

// TypeGroupChannelsJoined acknowledges a join with the channels actually joined.
const TypeGroupChannelsJoined = "groupChannelsJoined"

type ClientFrame struct {
	Type     string   `json:"type"`
	GroupIDs []string `json:"groupIds,omitempty"`
	GroupID  string   `json:"groupId,omitempty"`
}

// EventFrame is a server push. Type is one of the event.Type values or
// TypeGroupChannelsJoined; only the matching payload field is set. An empty
// presence snapshot has no onlineUsers field.
type EventFrame struct {
	Type        string   `json:"type"`
	OnlineUsers []string `json:"onlineUsers,omitempty"`
	Message     *Message `json:"message,omitempty"`
	Request     *Request `json:"request,omitempty"`
	Group       *Group   `json:"group,omitempty"`
	GroupIDs    []string `json:"groupIds,omitempty"`
}

// FromEvent maps a domain event to its frame. Unknown events yield ok=false.
func FromEvent(e event.DomainEvent) (EventFrame, bool) {
	frame := EventFrame{Type: string(e.Type())}
	switch evt := e.(type) {
	case event.OnlineUsersChanged:
		frame.OnlineUsers = evt.UserIDs
	case event.NewDirectMessage:
		frame.Message = lo.ToPtr(FromMessage(evt.Message))
	case event.NewGroupMessage:
		frame.Message = lo.ToPtr(FromMessage(evt.Message))
	case event.RequestSent:
		frame.Request = lo.ToPtr(FromRequest(evt.Request))
	case event.RequestUpdated:
		frame.Request = lo.ToPtr(FromRequest(evt.Request))
	case event.RequestAccepted:
		frame.Request = lo.ToPtr(FromRequest(evt.Request))
	case event.GroupUpdated:
		frame.Group = lo.ToPtr(FromGroup(evt.Group))
	default:
		return EventFrame{}, false
	}
	return frame, true
}

// Joined builds the acknowledgement of a join request.
func Joined(groupIDs []uuid.UUID) EventFrame {
	return EventFrame{
		Type:     TypeGroupChannelsJoined,
		GroupIDs: lo.Map(groupIDs, func(id uuid.UUID, _ int) string { return id.String() }),
	}
}

// GroupUUIDs parses the ids of a client frame, dropping the malformed ones.
func GroupUUIDs(raw []string) []uuid.UUID {
	return lo.FilterMap(raw, func(s string, _ int) (uuid.UUID, bool) {
		id, err := uuid.Parse(s)
		return id, err == nil
	})
}
