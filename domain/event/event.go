package event

import (
	"chat-gate/domain"
)

type Type string

const (
	TypeOnlineUsersChanged Type = "onlineUsersChanged"
	TypeNewDirectMessage   Type = "newDirectMessage"
	TypeNewGroupMessage    Type = "newGroupMessage"
	TypeRequestSent        Type = "requestSent"
	TypeRequestUpdated     Type = "requestUpdated"
	TypeRequestAccepted    Type = "requestAccepted"
	TypeGroupUpdated       Type = "groupUpdated"
)

// DomainEvent is what sinks push to connected users.
type DomainEvent interface {
	Type() Type
}

// OnlineUsersChanged carries the full snapshot, never a delta.
type OnlineUsersChanged struct {
	UserIDs []string
}

func (OnlineUsersChanged) Type() Type { return TypeOnlineUsersChanged }

type NewDirectMessage struct {
	Message domain.Message
}

func (NewDirectMessage) Type() Type { return TypeNewDirectMessage }

type NewGroupMessage struct {
	Message domain.Message
}

func (NewGroupMessage) Type() Type { return TypeNewGroupMessage }

type RequestSent struct {
	Request domain.ConversationRequest
}

func (RequestSent) Type() Type { return TypeRequestSent }

// RequestUpdated is emitted on reject and cancel.
type RequestUpdated struct {
	Request domain.ConversationRequest
}

func (RequestUpdated) Type() Type { return TypeRequestUpdated }

type RequestAccepted struct {
	Request domain.ConversationRequest
}

func (RequestAccepted) Type() Type { return TypeRequestAccepted }

// GroupUpdated is sent to members whose view of the group changed,
// including a member that was just removed.
type GroupUpdated struct {
	Group domain.Group
}

func (GroupUpdated) Type() Type { return TypeGroupUpdated }
