package runtime

import (
	"chat-gate/contract"
	"chat-gate/domain/event"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Set map[string]struct{}

// Registry is the process-local view of connected users.
// A user holds a single sink (last registration wins) and a set of group
// channels. Channels only ever contain online users: unregistering drops the
// user from all of them.
type Registry struct {
	mu              sync.RWMutex
	presence        sync.Mutex // orders snapshot broadcasts
	log             *slog.Logger
	sessions        map[string]contract.EventSink // map user -> Sink
	channelUsers    map[uuid.UUID]Set             // map group channel to users
	presenceTimeout time.Duration
}

func NewRegistry(log *slog.Logger, presenceTimeout time.Duration) *Registry {
	return &Registry{
		log:             log,
		sessions:        make(map[string]contract.EventSink),
		channelUsers:    make(map[uuid.UUID]Set),
		presenceTimeout: presenceTimeout,
	}
}

// Register makes sink the live connection of userID, replacing any previous
// one, then broadcasts the new online snapshot to everyone.
func (r *Registry) Register(userID string, sink contract.EventSink) {
	r.presence.Lock()
	defer r.presence.Unlock()

	r.mu.Lock()
	r.sessions[userID] = sink
	snapshot, sinks := r.snapshotLocked()
	r.mu.Unlock()

	r.broadcast(snapshot, sinks)
}

// Unregister removes userID only if sink is still its current connection, so
// a stale disconnect cannot evict a newer session. It reports whether the
// user went offline.
func (r *Registry) Unregister(userID string, sink contract.EventSink) bool {
	r.presence.Lock()
	defer r.presence.Unlock()

	r.mu.Lock()
	current, ok := r.sessions[userID]
	if !ok || current != sink {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, userID)
	for groupID, users := range r.channelUsers {
		delete(users, userID)
		// No one is left in the channel, remove the entry entirely
		if len(users) == 0 {
			delete(r.channelUsers, groupID)
		}
	}
	snapshot, sinks := r.snapshotLocked()
	r.mu.Unlock()

	r.broadcast(snapshot, sinks)
	return true
}

func (r *Registry) Lookup(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// LookupMany resolves the online subset of userIDs, each user at most once.
func (r *Registry) LookupMany(userIDs []string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, userID := range lo.Uniq(userIDs) {
		if sink, ok := r.sessions[userID]; ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// JoinChannel subscribes an online user to a group channel. Membership must
// have been checked by the caller. Offline users are ignored.
func (r *Registry) JoinChannel(userID string, groupID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, online := r.sessions[userID]; !online {
		return false
	}
	if _, ok := r.channelUsers[groupID]; !ok {
		r.channelUsers[groupID] = make(Set)
	}
	r.channelUsers[groupID][userID] = struct{}{}
	return true
}

func (r *Registry) LeaveChannel(userID string, groupID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if users, ok := r.channelUsers[groupID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.channelUsers, groupID)
		}
	}
}

// ChannelSinks retrieves the live connections subscribed to a group channel
// whose user is one of memberIDs. It performs a two-step lookup: channel users
// first, then their sink in the sessions map, so a user in many channels is
// still managed in one place. A subscriber missing from memberIDs left the
// group after subscribing and is dropped from the channel.
func (r *Registry) ChannelSinks(groupID uuid.UUID, memberIDs []string) []contract.EventSink {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.channelUsers[groupID]
	if !ok {
		return nil
	}
	members := lo.SliceToMap(memberIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	var sinks []contract.EventSink
	for userID := range users {
		if _, member := members[userID]; !member {
			delete(users, userID)
			continue
		}
		if sink, exists := r.sessions[userID]; exists {
			sinks = append(sinks, sink)
		}
	}
	if len(users) == 0 {
		delete(r.channelUsers, groupID)
	}
	return sinks
}

// Channels lists the group channels userID is subscribed to.
func (r *Registry) Channels(userID string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var groups []uuid.UUID
	for groupID, users := range r.channelUsers {
		if _, ok := users[userID]; ok {
			groups = append(groups, groupID)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].String() < groups[j].String() })
	return groups
}

func (r *Registry) onlineLocked() []string {
	users := lo.Keys(r.sessions)
	sort.Strings(users)
	return users
}

func (r *Registry) snapshotLocked() ([]string, []contract.EventSink) {
	return r.onlineLocked(), lo.Values(r.sessions)
}

// broadcast runs outside mu, lookups are never blocked by a sink.
func (r *Registry) broadcast(online []string, sinks []contract.EventSink) {
	evt := event.OnlineUsersChanged{UserIDs: online}
	for _, sink := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.presenceTimeout)
		if err := sink.Consume(ctx, evt); err != nil {
			r.log.Debug("presence snapshot not delivered", "error", err)
		}
		cancel()
	}
}
