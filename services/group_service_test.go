package services

import (
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/errors"
	"chat-gate/mocks"
	"chat-gate/sink"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGroup_Create_Includes_Admin_Once(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{
		AdminID:   "u1",
		Name:      "  climbing  ",
		MemberIDs: []string{"u2", "u1", "u2"},
	})

	req.NoError(err)
	req.Equal("climbing", g.Name)
	req.Equal([]string{"u1", "u2"}, g.Members)
	req.True(g.IsActive)
	deliveries := env.drain()
	req.Len(deliveries, 1)
	req.Equal([]string{"u2"}, deliveries[0].UserIDs)
}

func TestGroup_Create_Validation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  domain.CreateGroupCommand
	}{
		{"missing name", domain.CreateGroupCommand{AdminID: "u1"}},
		{"blank name", domain.CreateGroupCommand{AdminID: "u1", Name: "   "}},
		{"name too long", domain.CreateGroupCommand{AdminID: "u1", Name: strings.Repeat("x", 101)}},
		{"description too long", domain.CreateGroupCommand{AdminID: "u1", Name: "ok", Description: strings.Repeat("x", 501)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := env.groups.Create(ctx, tt.cmd)
			req.Equal(errors.KindValidation, errors.KindOf(err))
		})
	}
}

func TestGroup_Admin_Cannot_Be_Removed_Member_Can_Leave(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "G", MemberIDs: []string{"u2"}})
	req.NoError(err)

	// removeMember(G, U1, U1) is rejected
	_, err = env.groups.RemoveMember(ctx, g.ID, "u1", "u1")
	req.ErrorIs(err, errors.ErrCannotRemoveAdmin)

	// The admin cannot leave either
	req.ErrorIs(env.groups.Leave(ctx, g.ID, "u1"), errors.ErrAdminCannotLeave)

	// leave(G, U2) succeeds
	req.NoError(env.groups.Leave(ctx, g.ID, "u2"))
	got, err := env.groups.Get(ctx, g.ID, "u1")
	req.NoError(err)
	req.Equal([]string{"u1"}, got.Members)

	// U2 is no longer allowed to read it
	_, err = env.groups.Get(ctx, g.ID, "u2")
	req.ErrorIs(err, errors.ErrNotMember)
}

func TestGroup_Only_Admin_Changes_Membership(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "G", MemberIDs: []string{"u2"}})
	req.NoError(err)

	_, err = env.groups.AddMembers(ctx, g.ID, "u2", []string{"u3"})
	req.ErrorIs(err, errors.ErrOnlyAdmin)
	_, err = env.groups.RemoveMember(ctx, g.ID, "u2", "u1")
	req.ErrorIs(err, errors.ErrOnlyAdmin)
	req.ErrorIs(env.groups.Delete(ctx, g.ID, "u2"), errors.ErrOnlyAdmin)

	updated, err := env.groups.AddMembers(ctx, g.ID, "u1", []string{"u3", "u2"})
	req.NoError(err)
	req.Equal([]string{"u1", "u2", "u3"}, updated.Members)

	_, err = env.groups.AddMembers(ctx, uuid.New(), "u1", []string{"u3"})
	req.ErrorIs(err, errors.ErrGroupNotFound)
}

func TestGroup_Channels_Follow_Membership(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	// Given u1, u2 and u3 are online
	for _, id := range []string{"u1", "u2", "u3"} {
		req.NoError(env.sessions.Connect(ctx, id, sink.NewTimeline(id)))
	}

	// When u1 creates a group with u2, then adds u3
	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "G", MemberIDs: []string{"u2"}})
	req.NoError(err)
	req.Len(env.registry.ChannelSinks(g.ID, []string{"u1", "u2", "u3"}), 2)
	_, err = env.groups.AddMembers(ctx, g.ID, "u1", []string{"u3"})
	req.NoError(err)

	// Then every member listens to the channel without asking
	req.Len(env.registry.ChannelSinks(g.ID, []string{"u1", "u2", "u3"}), 3)

	// When u3 is removed and u2 leaves
	_, err = env.groups.RemoveMember(ctx, g.ID, "u1", "u3")
	req.NoError(err)
	req.NoError(env.groups.Leave(ctx, g.ID, "u2"))

	// Then only the admin is left on the channel
	req.Len(env.registry.ChannelSinks(g.ID, []string{"u1", "u2", "u3"}), 1)
	req.Empty(env.registry.Channels("u3"))

	// And the removed member was told
	removedNotice := lo.Filter(env.drain(), func(d contract.Delivery, _ int) bool {
		return d.Event.Type() == event.TypeGroupUpdated && lo.Contains(d.UserIDs, "u3")
	})
	req.Len(removedNotice, 2) // added, then removed
}

func TestGroup_ListForUser_Active_Newest_First(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	older, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "older"})
	req.NoError(err)
	env.clock.Advance(time.Minute)
	newer, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "newer"})
	req.NoError(err)
	env.clock.Advance(time.Minute)
	deleted, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "deleted"})
	req.NoError(err)

	req.NoError(env.groups.Delete(ctx, deleted.ID, "u1"))
	// Deleting twice is harmless
	req.NoError(env.groups.Delete(ctx, deleted.ID, "u1"))

	groups, err := env.groups.ListForUser(ctx, "u1")
	req.NoError(err)
	req.Equal([]uuid.UUID{newer.ID, older.ID}, lo.Map(groups, func(g domain.Group, _ int) uuid.UUID { return g.ID }))

	// A soft deleted group is still readable by id
	got, err := env.groups.Get(ctx, deleted.ID, "u1")
	req.NoError(err)
	req.False(got.IsActive)
}

func TestGroup_Update_Is_Partial_And_Uploads_Picture(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	uploader := mocks.NewMockMediaUploader(ctrl)
	env := newTestEnv(t, uploader, nil)
	ctx := context.Background()

	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "G", Description: "first", MemberIDs: []string{"u2"}})
	req.NoError(err)

	// A member that is not admin cannot update, and nothing is uploaded
	_, err = env.groups.Update(ctx, domain.UpdateGroupCommand{GroupID: g.ID, ActorID: "u2", Name: lo.ToPtr("hacked"), Picture: []byte("png")})
	req.ErrorIs(err, errors.ErrOnlyAdmin)

	// The admin renames and sets a picture, the description is kept
	uploader.EXPECT().Upload(gomock.Any(), []byte("png"), domain.MediaImage).Return("http://media/pic.png", nil).Times(1)

	updated, err := env.groups.Update(ctx, domain.UpdateGroupCommand{GroupID: g.ID, ActorID: "u1", Name: lo.ToPtr("renamed"), Picture: []byte("png")})
	req.NoError(err)
	req.Equal("renamed", updated.Name)
	req.Equal("first", updated.Description)
	req.Equal("http://media/pic.png", updated.PictureURL)
}

func TestGroup_IsMember_IsAdmin(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	g, err := env.groups.Create(ctx, domain.CreateGroupCommand{AdminID: "u1", Name: "G", MemberIDs: []string{"u2"}})
	req.NoError(err)

	member, err := env.groups.IsMember(ctx, g.ID, "u2")
	req.NoError(err)
	req.True(member)
	admin, err := env.groups.IsAdmin(ctx, g.ID, "u2")
	req.NoError(err)
	req.False(admin)
	_, err = env.groups.IsMember(ctx, uuid.New(), "u2")
	req.ErrorIs(err, errors.ErrGroupNotFound)
}
