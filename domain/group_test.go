package domain

import (
	"chat-gate/errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestNewGroup_Admin_Is_Always_A_Member(t *testing.T) {
	req := require.New(t)

	g, err := NewGroup("alice", "  friends ", "", []string{"bob", "alice", "bob", ""}, t0)

	req.NoError(err)
	req.Equal("friends", g.Name)
	req.Equal([]string{"alice", "bob"}, g.Members)
	req.True(g.IsAdmin("alice"))
	req.True(g.IsActive)
}

func TestNewGroup_Requires_Name(t *testing.T) {
	_, err := NewGroup("alice", "   ", "", nil, t0)
	require.ErrorIs(t, err, errors.ErrGroupNameRequired)
}

func TestGroup_AddMembers_Skips_Existing(t *testing.T) {
	req := require.New(t)
	g, err := NewGroup("alice", "friends", "", []string{"bob"}, t0)
	req.NoError(err)

	added := g.AddMembers([]string{"bob", "carol", "carol"}, t0.Add(time.Minute))

	req.Equal([]string{"carol"}, added)
	req.Equal([]string{"alice", "bob", "carol"}, g.Members)
	req.Equal(t0.Add(time.Minute), g.UpdatedAt)

	req.Empty(g.AddMembers([]string{"bob"}, t0.Add(time.Hour)))
	req.Equal(t0.Add(time.Minute), g.UpdatedAt)
}

func TestGroup_RemoveMember_And_Leave(t *testing.T) {
	req := require.New(t)
	g, err := NewGroup("alice", "friends", "", []string{"bob", "carol"}, t0)
	req.NoError(err)

	// The admin stays whatever happens
	_, err = g.RemoveMember("alice", t0)
	req.ErrorIs(err, errors.ErrCannotRemoveAdmin)
	_, err = g.Leave("alice", t0)
	req.ErrorIs(err, errors.ErrAdminCannotLeave)

	removed, err := g.RemoveMember("bob", t0)
	req.NoError(err)
	req.True(removed)

	left, err := g.Leave("carol", t0)
	req.NoError(err)
	req.True(left)

	removed, err = g.RemoveMember("dave", t0)
	req.NoError(err)
	req.False(removed)
	req.Equal([]string{"alice"}, g.Members)
}

func TestGroup_Apply_Is_Partial(t *testing.T) {
	req := require.New(t)
	g, err := NewGroup("alice", "friends", "old", nil, t0)
	req.NoError(err)
	g.PictureURL = "/media/a.png"

	g.Apply(GroupUpdate{Name: lo.ToPtr(" "), Description: lo.ToPtr("new"), PictureURL: lo.ToPtr("")}, t0.Add(time.Minute))

	req.Equal("friends", g.Name)
	req.Equal("new", g.Description)
	req.Equal("/media/a.png", g.PictureURL)
	req.Equal(t0.Add(time.Minute), g.UpdatedAt)
}

func TestGroup_Deactivate_Twice(t *testing.T) {
	req := require.New(t)
	g, err := NewGroup("alice", "friends", "", nil, t0)
	req.NoError(err)

	g.Deactivate(t0.Add(time.Minute))
	g.Deactivate(t0.Add(time.Hour))

	req.False(g.IsActive)
	req.Equal(t0.Add(time.Minute), g.UpdatedAt)
}
