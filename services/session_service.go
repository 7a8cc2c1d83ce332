package services

import (
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/errors"
	"chat-gate/repositories"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ISessionService interface {
	Connect(ctx context.Context, userID string, sink contract.EventSink) error
	Disconnect(userID string, sink contract.EventSink)
	JoinGroupChannels(ctx context.Context, userID string, groupIDs []uuid.UUID) ([]uuid.UUID, error)
	LeaveGroupChannel(userID string, groupID uuid.UUID)
}

// SessionService binds a live connection to the registry and to the channels
// of the groups its user belongs to.
type SessionService struct {
	store    *repositories.Store
	registry contract.IRegistry
	log      *slog.Logger
}

func NewSessionService(store *repositories.Store, registry contract.IRegistry, log *slog.Logger) *SessionService {
	return &SessionService{store: store, registry: registry, log: log}
}

// Connect registers sink as the user's connection and subscribes it to the
// channels of every group of the user. Soft deleted groups are included since
// they still accept messages.
func (s *SessionService) Connect(_ context.Context, userID string, sink contract.EventSink) error {
	s.registry.Register(userID, sink)

	var groups []domain.Group
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		groups, err = tx.GroupsForUser(userID)
		return err
	})
	if err != nil {
		s.registry.Unregister(userID, sink)
		return internalError(s.log, "load groups on connect", err, "user_id", userID)
	}
	for _, g := range groups {
		s.registry.JoinChannel(userID, g.ID)
	}
	s.log.Debug("user connected", "user_id", userID, "groups", len(groups))
	return nil
}

func (s *SessionService) Disconnect(userID string, sink contract.EventSink) {
	if s.registry.Unregister(userID, sink) {
		s.log.Debug("user disconnected", "user_id", userID)
	}
}

// JoinGroupChannels honors a client subscription request for the groups the
// user is a member of and skips the others. It returns the joined ids.
func (s *SessionService) JoinGroupChannels(_ context.Context, userID string, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	var joined []uuid.UUID
	err := s.store.View(func(tx *repositories.Tx) error {
		for _, groupID := range groupIDs {
			g, err := tx.GroupByID(groupID)
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if g.IsMember(userID) && s.registry.JoinChannel(userID, groupID) {
				joined = append(joined, groupID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, internalError(s.log, "join group channels", err, "user_id", userID)
	}
	return joined, nil
}

func (s *SessionService) LeaveGroupChannel(userID string, groupID uuid.UUID) {
	s.registry.LeaveChannel(userID, groupID)
}
