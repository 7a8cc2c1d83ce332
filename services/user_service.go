package services

import (
	"chat-gate/clock"
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/errors"
	"chat-gate/repositories"
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

const searchLimit = 10

type IUserService interface {
	UpsertProfile(ctx context.Context, cmd domain.UpsertProfileCommand) (domain.User, error)
	Get(ctx context.Context, userID string) (domain.User, error)
	Search(ctx context.Context, actorID, query string) ([]domain.User, error)
	ListContacts(ctx context.Context, actorID string) ([]domain.User, error)
	Reindex(ctx context.Context) (int, error)
}

// UserService keeps the profiles known to the chat gate. Identities come from
// the token issuer; a profile is what other users can find and see.
type UserService struct {
	store *repositories.Store
	index contract.IUserIndex
	clock clock.Clock
	log   *slog.Logger
}

func NewUserService(store *repositories.Store, index contract.IUserIndex, clk clock.Clock, log *slog.Logger) *UserService {
	return &UserService{store: store, index: index, clock: clk, log: log}
}

func (s *UserService) UpsertProfile(_ context.Context, cmd domain.UpsertProfileCommand) (domain.User, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.User{}, err
	}

	var user domain.User
	err := s.store.Update(func(tx *repositories.Tx) error {
		now := s.clock.Now()
		existing, err := tx.UserByID(cmd.UserID)
		switch {
		case err == nil:
			user = existing
		case errors.Is(err, repositories.ErrNotFound):
			user = domain.User{ID: cmd.UserID, CreatedAt: now}
		default:
			return err
		}
		user.Email = strings.TrimSpace(cmd.Email)
		user.FullName = strings.TrimSpace(cmd.FullName)
		user.ProfilePic = cmd.ProfilePic
		user.UpdatedAt = now

		if err = tx.PutUser(user); errors.Is(err, repositories.ErrDuplicateEmail) {
			return errors.ErrEmailTaken
		}
		return err
	})
	if err != nil {
		return domain.User{}, s.fail("upsert profile", err, "user_id", cmd.UserID)
	}

	// The index is derived data, rebuilt at startup: a failure here is not fatal
	if err = s.index.Index(user); err != nil {
		s.log.Warn("user not indexed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *UserService) Get(_ context.Context, userID string) (domain.User, error) {
	var user domain.User
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		user, err = tx.UserByID(userID)
		if errors.Is(err, repositories.ErrNotFound) {
			return errors.ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return domain.User{}, s.fail("get user", err, "user_id", userID)
	}
	return user, nil
}

// Search matches query as a case-insensitive substring of emails, excluding
// the caller, at most searchLimit results.
func (s *UserService) Search(ctx context.Context, actorID, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.ErrEmptySearch
	}
	// One extra hit covers the caller being filtered out
	ids, err := s.index.Search(ctx, strings.ToLower(query), searchLimit+1)
	if err != nil {
		return nil, s.fail("search users", err)
	}
	ids = lo.Without(ids, actorID)

	var users []domain.User
	err = s.store.View(func(tx *repositories.Tx) error {
		var err error
		users, err = tx.UsersByIDs(ids)
		return err
	})
	if err != nil {
		return nil, s.fail("load search results", err)
	}
	if len(users) > searchLimit {
		users = users[:searchLimit]
	}
	return users, nil
}

// ListContacts returns the users the actor may already talk to: accepted
// requests plus anyone with direct history.
func (s *UserService) ListContacts(_ context.Context, actorID string) ([]domain.User, error) {
	var contacts []domain.User
	err := s.store.View(func(tx *repositories.Tx) error {
		requests, err := tx.RequestsForUser(actorID)
		if err != nil {
			return err
		}
		accepted := lo.FilterMap(requests, func(r domain.ConversationRequest, _ int) (string, bool) {
			return r.Counterpart(actorID), r.Status == domain.StatusAccepted
		})
		ids := lo.Without(lo.Uniq(append(accepted, tx.DirectContacts(actorID)...)), actorID)
		contacts, err = tx.UsersByIDs(ids)
		return err
	})
	if err != nil {
		return nil, s.fail("list contacts", err, "user_id", actorID)
	}
	return contacts, nil
}

// Reindex feeds every stored profile to the search index.
func (s *UserService) Reindex(_ context.Context) (int, error) {
	var users []domain.User
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		users, err = tx.AllUsers()
		return err
	})
	if err != nil {
		return 0, s.fail("load users for reindex", err)
	}
	for _, u := range users {
		if err = s.index.Index(u); err != nil {
			return 0, s.fail("reindex user", err, "user_id", u.ID)
		}
	}
	return len(users), nil
}

func (s *UserService) fail(op string, err error, attrs ...any) error {
	return internalError(s.log, op, err, attrs...)
}
