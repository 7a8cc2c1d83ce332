//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-gate/domain"
	"chat-gate/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live connection. Consume must not block past ctx.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks who is online and which group channels each of them listens to.
// A user holds at most one sink: the latest registration wins.
type IRegistry interface {
	Register(userID string, sink EventSink)
	Unregister(userID string, sink EventSink) bool
	Lookup(userID string) (EventSink, bool)
	LookupMany(userIDs []string) []EventSink
	OnlineUsers() []string
	JoinChannel(userID string, groupID uuid.UUID) bool
	LeaveChannel(userID string, groupID uuid.UUID)
	ChannelSinks(groupID uuid.UUID, memberIDs []string) []EventSink
	Channels(userID string) []uuid.UUID
}

// Delivery is a unit of fan-out work. GroupID set means channel delivery,
// restricted to the group members listed in UserIDs; otherwise the event goes
// to UserIDs.
type Delivery struct {
	UserIDs []string
	GroupID uuid.UUID
	Event   event.DomainEvent
}

// INotifier schedules deliveries. It never blocks the caller.
type INotifier interface {
	NotifyUsers(evt event.DomainEvent, userIDs ...string)
	NotifyChannel(groupID uuid.UUID, memberIDs []string, evt event.DomainEvent)
}

type MediaUploader interface {
	Upload(ctx context.Context, payload []byte, kind domain.MediaKind) (string, error)
}

// IUserIndex is the search side of the user store. It only holds ids and emails.
type IUserIndex interface {
	Index(user domain.User) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type ContentFilter interface {
	Sanitize(text string) string
}
