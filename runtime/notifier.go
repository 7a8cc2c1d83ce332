package runtime

import (
	"chat-gate/contract"
	"chat-gate/domain/event"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier is the producer side of the delivery queue. Services call it after
// a commit; it never blocks, a full queue drops the event.
type Notifier struct {
	log        *slog.Logger
	deliveries chan contract.Delivery
}

func NewNotifier(log *slog.Logger, bufferSize int) *Notifier {
	return &Notifier{log: log, deliveries: make(chan contract.Delivery, bufferSize)}
}

func (n *Notifier) NotifyUsers(evt event.DomainEvent, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	n.enqueue(contract.Delivery{UserIDs: userIDs, Event: evt})
}

// NotifyChannel publishes evt on the group channel. memberIDs are the members
// at commit time; subscribers outside of them are skipped at delivery.
func (n *Notifier) NotifyChannel(groupID uuid.UUID, memberIDs []string, evt event.DomainEvent) {
	n.enqueue(contract.Delivery{GroupID: groupID, UserIDs: memberIDs, Event: evt})
}

// Deliveries is consumed by a single EventFanout worker, which keeps FIFO order.
func (n *Notifier) Deliveries() <-chan contract.Delivery {
	return n.deliveries
}

// Pending and Capacity feed the stats endpoint.
func (n *Notifier) Pending() int { return len(n.deliveries) }

func (n *Notifier) Capacity() int { return cap(n.deliveries) }

func (n *Notifier) enqueue(d contract.Delivery) {
	select {
	case n.deliveries <- d:
	default:
		n.log.Warn("delivery queue full, dropping event",
			"type", d.Event.Type(),
			"capacity", cap(n.deliveries))
	}
}
