package services

import (
	"chat-gate/clock"
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/errors"
	"chat-gate/repositories"
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IGroupService interface {
	Create(ctx context.Context, cmd domain.CreateGroupCommand) (domain.Group, error)
	Get(ctx context.Context, groupID uuid.UUID, actorID string) (domain.Group, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Group, error)
	AddMembers(ctx context.Context, groupID uuid.UUID, actorID string, memberIDs []string) (domain.Group, error)
	RemoveMember(ctx context.Context, groupID uuid.UUID, actorID, memberID string) (domain.Group, error)
	Leave(ctx context.Context, groupID uuid.UUID, actorID string) error
	Update(ctx context.Context, cmd domain.UpdateGroupCommand) (domain.Group, error)
	Delete(ctx context.Context, groupID uuid.UUID, actorID string) error
	IsMember(ctx context.Context, groupID uuid.UUID, userID string) (bool, error)
	IsAdmin(ctx context.Context, groupID uuid.UUID, userID string) (bool, error)
}

// GroupService enforces group invariants and keeps the live channel
// subscriptions in step with committed membership.
type GroupService struct {
	store    *repositories.Store
	registry contract.IRegistry
	notifier contract.INotifier
	uploader contract.MediaUploader
	clock    clock.Clock
	log      *slog.Logger
}

func NewGroupService(store *repositories.Store, registry contract.IRegistry, notifier contract.INotifier,
	uploader contract.MediaUploader, clk clock.Clock, log *slog.Logger) *GroupService {
	return &GroupService{store: store, registry: registry, notifier: notifier, uploader: uploader, clock: clk, log: log}
}

// Create builds a group whose admin is always a member.
func (s *GroupService) Create(ctx context.Context, cmd domain.CreateGroupCommand) (domain.Group, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Group{}, err
	}
	g, err := domain.NewGroup(cmd.AdminID, cmd.Name, cmd.Description, cmd.MemberIDs, s.clock.Now())
	if err != nil {
		return domain.Group{}, err
	}
	if len(cmd.Picture) > 0 {
		if g.PictureURL, err = s.uploader.Upload(ctx, cmd.Picture, domain.MediaImage); err != nil {
			return domain.Group{}, s.fail("upload group picture", err)
		}
	}

	if err = s.store.Update(func(tx *repositories.Tx) error { return tx.PutGroup(g) }); err != nil {
		return domain.Group{}, s.fail("create group", err, "admin_id", cmd.AdminID)
	}

	s.subscribe(g.ID, g.Members)
	s.notifier.NotifyUsers(event.GroupUpdated{Group: g}, lo.Without(g.Members, g.AdminID)...)
	return g, nil
}

// Get returns a group to one of its members. Inactive groups stay readable by id.
func (s *GroupService) Get(_ context.Context, groupID uuid.UUID, actorID string) (domain.Group, error) {
	g, err := s.group(groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if !g.IsMember(actorID) {
		return domain.Group{}, errors.ErrNotMember
	}
	return g, nil
}

// ListForUser returns the active groups of userID, most recently updated first.
func (s *GroupService) ListForUser(_ context.Context, userID string) ([]domain.Group, error) {
	var groups []domain.Group
	err := s.store.View(func(tx *repositories.Tx) error {
		all, err := tx.GroupsForUser(userID)
		groups = all
		return err
	})
	if err != nil {
		return nil, s.fail("list groups", err, "user_id", userID)
	}
	active := lo.Filter(groups, func(g domain.Group, _ int) bool { return g.IsActive })
	sort.SliceStable(active, func(i, j int) bool { return active[i].UpdatedAt.After(active[j].UpdatedAt) })
	return active, nil
}

func (s *GroupService) AddMembers(_ context.Context, groupID uuid.UUID, actorID string, memberIDs []string) (domain.Group, error) {
	var added []string
	g, err := s.mutate(groupID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrOnlyAdmin
		}
		added = g.AddMembers(memberIDs, s.clock.Now())
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.subscribe(g.ID, added)
	s.notifier.NotifyUsers(event.GroupUpdated{Group: g}, added...)
	return g, nil
}

func (s *GroupService) RemoveMember(_ context.Context, groupID uuid.UUID, actorID, memberID string) (domain.Group, error) {
	var removed bool
	g, err := s.mutate(groupID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrOnlyAdmin
		}
		var err error
		removed, err = g.RemoveMember(memberID, s.clock.Now())
		return err
	})
	if err != nil {
		return domain.Group{}, err
	}
	if removed {
		s.registry.LeaveChannel(memberID, g.ID)
		s.notifier.NotifyUsers(event.GroupUpdated{Group: g}, memberID)
	}
	return g, nil
}

// Leave removes the caller from the group. The admin has to delete it instead.
func (s *GroupService) Leave(_ context.Context, groupID uuid.UUID, actorID string) error {
	var left bool
	_, err := s.mutate(groupID, func(g *domain.Group) error {
		var err error
		left, err = g.Leave(actorID, s.clock.Now())
		return err
	})
	if err != nil {
		return err
	}
	if left {
		s.registry.LeaveChannel(actorID, groupID)
	}
	return nil
}

// Update applies the supplied fields only. Admin only.
func (s *GroupService) Update(ctx context.Context, cmd domain.UpdateGroupCommand) (domain.Group, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Group{}, err
	}
	current, err := s.group(cmd.GroupID)
	if err != nil {
		return domain.Group{}, err
	}
	// Admin is checked before the upload and again in the transaction
	if !current.IsAdmin(cmd.ActorID) {
		return domain.Group{}, errors.ErrOnlyAdmin
	}

	update := domain.GroupUpdate{Name: cmd.Name, Description: cmd.Description}
	if len(cmd.Picture) > 0 {
		url, err := s.uploader.Upload(ctx, cmd.Picture, domain.MediaImage)
		if err != nil {
			return domain.Group{}, s.fail("upload group picture", err)
		}
		update.PictureURL = &url
	}

	g, err := s.mutate(cmd.GroupID, func(g *domain.Group) error {
		if !g.IsAdmin(cmd.ActorID) {
			return errors.ErrOnlyAdmin
		}
		g.Apply(update, s.clock.Now())
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.notifier.NotifyChannel(g.ID, g.Members, event.GroupUpdated{Group: g})
	return g, nil
}

// Delete soft deletes the group; history and channels are kept.
func (s *GroupService) Delete(_ context.Context, groupID uuid.UUID, actorID string) error {
	_, err := s.mutate(groupID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrOnlyAdmin
		}
		g.Deactivate(s.clock.Now())
		return nil
	})
	return err
}

func (s *GroupService) IsMember(_ context.Context, groupID uuid.UUID, userID string) (bool, error) {
	g, err := s.group(groupID)
	if err != nil {
		return false, err
	}
	return g.IsMember(userID), nil
}

func (s *GroupService) IsAdmin(_ context.Context, groupID uuid.UUID, userID string) (bool, error) {
	g, err := s.group(groupID)
	if err != nil {
		return false, err
	}
	return g.IsAdmin(userID), nil
}

// mutate is the read-check-write cycle shared by every membership change.
// Authorization is checked inside the transaction on the version being written.
func (s *GroupService) mutate(groupID uuid.UUID, change func(g *domain.Group) error) (domain.Group, error) {
	var updated domain.Group
	err := retryOnConflict(func() error {
		return s.store.Update(func(tx *repositories.Tx) error {
			g, err := tx.GroupByID(groupID)
			if errors.Is(err, repositories.ErrNotFound) {
				return errors.ErrGroupNotFound
			}
			if err != nil {
				return err
			}
			if err = change(&g); err != nil {
				return err
			}
			updated = g
			return tx.PutGroup(g)
		})
	})
	if err != nil {
		return domain.Group{}, s.fail("update group", err, "group_id", groupID)
	}
	return updated, nil
}

func (s *GroupService) group(groupID uuid.UUID) (domain.Group, error) {
	var g domain.Group
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		g, err = tx.GroupByID(groupID)
		if errors.Is(err, repositories.ErrNotFound) {
			return errors.ErrGroupNotFound
		}
		return err
	})
	if err != nil {
		return domain.Group{}, s.fail("get group", err, "group_id", groupID)
	}
	return g, nil
}

// subscribe joins the online ones among userIDs to the group channel.
func (s *GroupService) subscribe(groupID uuid.UUID, userIDs []string) {
	for _, userID := range userIDs {
		s.registry.JoinChannel(userID, groupID)
	}
}

func (s *GroupService) fail(op string, err error, attrs ...any) error {
	return internalError(s.log, op, err, attrs...)
}
