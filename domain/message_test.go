package domain

import (
	"chat-gate/errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMessage_Exactly_One_Target(t *testing.T) {
	req := require.New(t)

	direct, err := NewDirectMessage("alice", "bob", Content{Text: "hi"}, t0)
	req.NoError(err)
	req.Equal(KindDirect, direct.Kind)
	req.True(direct.Involves("bob"))
	req.False(direct.Involves("carol"))

	group, err := NewGroupMessage("alice", uuid.New(), Content{ImageURL: "/media/a.png"}, t0)
	req.NoError(err)
	req.Equal(KindGroup, group.Kind)

	both := direct
	both.GroupID = uuid.New()
	req.ErrorIs(both.Validate(), errors.ErrMessageShape)

	_, err = NewDirectMessage("alice", "", Content{Text: "hi"}, t0)
	req.ErrorIs(err, errors.ErrMessageShape)

	mislabelled := group
	mislabelled.Kind = KindDirect
	req.ErrorIs(mislabelled.Validate(), errors.ErrMessageShape)
}

func TestMessage_Requires_Content(t *testing.T) {
	_, err := NewDirectMessage("alice", "bob", Content{Text: "  \n"}, t0)
	require.ErrorIs(t, err, errors.ErrEmptyMessage)
}

func TestValidate_Names_The_Field(t *testing.T) {
	req := require.New(t)

	err := Validate(SendDirectCommand{SenderID: "alice", ReceiverID: "alice", Text: "hi"})
	req.Equal(errors.KindValidation, errors.KindOf(err))
	req.Contains(err.Error(), "ReceiverID")

	err = Validate(UpsertProfileCommand{UserID: "alice", Email: "not-an-email", FullName: "Alice"})
	req.Contains(err.Error(), "Email")

	err = Validate(SendGroupCommand{SenderID: "alice", Text: "hi"})
	req.Contains(err.Error(), "GroupID")

	req.NoError(Validate(CreateGroupCommand{AdminID: "alice", Name: "friends", MemberIDs: []string{"bob"}}))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
