package sink

import (
	"chat-gate/domain"
	"chat-gate/domain/event"
	"context"
	"sync"
)

// Timeline is an in-memory sink keeping what one user saw, in arrival order.
// It backs in-process clients and tests.
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	events   []event.DomainEvent
	messages []domain.Message
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, e)
	switch evt := e.(type) {
	case event.NewDirectMessage:
		t.messages = append(t.messages, evt.Message)
	case event.NewGroupMessage:
		t.messages = append(t.messages, evt.Message)
	}
	return nil
}

func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Message(nil), t.messages...)
}

func (t *Timeline) Events() []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.DomainEvent(nil), t.events...)
}

// EventsOf filters the received events by type.
func (t *Timeline) EventsOf(eventType event.Type) []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var matching []event.DomainEvent
	for _, e := range t.events {
		if e.Type() == eventType {
			matching = append(matching, e)
		}
	}
	return matching
}
