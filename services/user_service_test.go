package services

import (
	"chat-gate/domain"
	"chat-gate/errors"
	"chat-gate/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newUserService(t *testing.T, env *testEnv) (*UserService, *mocks.MockIUserIndex) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIUserIndex(ctrl)
	return NewUserService(env.store, index, env.clock, slog.Default()), index
}

func TestUser_UpsertProfile(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	users, index := newUserService(t, env)
	ctx := context.Background()
	index.EXPECT().Index(gomock.Any()).Return(nil).Times(3)

	created, err := users.UpsertProfile(ctx, domain.UpsertProfileCommand{UserID: "u1", Email: "Alice@Example.com", FullName: " Alice "})
	req.NoError(err)
	req.Equal("Alice", created.FullName)
	req.Equal(start, created.CreatedAt)

	// Updating keeps the creation date
	env.clock.Advance(1)
	updated, err := users.UpsertProfile(ctx, domain.UpsertProfileCommand{UserID: "u1", Email: "alice@new.com", FullName: "Alice"})
	req.NoError(err)
	req.Equal(start, updated.CreatedAt)
	req.True(updated.UpdatedAt.After(start))

	// The old email is free again, the new one is taken
	_, err = users.UpsertProfile(ctx, domain.UpsertProfileCommand{UserID: "u2", Email: "alice@example.com", FullName: "Bob"})
	req.NoError(err)
	_, err = users.UpsertProfile(ctx, domain.UpsertProfileCommand{UserID: "u3", Email: "ALICE@new.com", FullName: "Eve"})
	req.ErrorIs(err, errors.ErrEmailTaken)

	_, err = users.UpsertProfile(ctx, domain.UpsertProfileCommand{UserID: "u4", Email: "not-an-email", FullName: "Eve"})
	req.Equal(errors.KindValidation, errors.KindOf(err))
}

func TestUser_Get_Unknown(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	users, _ := newUserService(t, env)

	_, err := users.Get(context.Background(), "ghost")

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUser_Search_Excludes_Caller_And_Caps_Results(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ids := lo.Times(12, func(i int) string { return fmt.Sprintf("u%02d", i) })
	env.seedUsers(t, ids...)
	users, index := newUserService(t, env)
	ctx := context.Background()

	_, err := users.Search(ctx, "u00", "  ")
	req.ErrorIs(err, errors.ErrEmptySearch)

	// The index hands back the caller among the hits
	index.EXPECT().Search(gomock.Any(), "example", searchLimit+1).Return(ids[:searchLimit+1], nil)

	found, err := users.Search(ctx, "u00", " EXAMPLE ")
	req.NoError(err)
	req.Len(found, searchLimit)
	req.NotContains(lo.Map(found, func(u domain.User, _ int) string { return u.ID }), "u00")
}

func TestUser_ListContacts(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "A", "B", "C", "D")
	users, _ := newUserService(t, env)
	ctx := context.Background()

	// B accepted, C only has history with A, D is still pending
	sent, err := env.admission.SendRequest(ctx, "A", "B")
	req.NoError(err)
	_, err = env.admission.AcceptRequest(ctx, sent.Request.ID, "B")
	req.NoError(err)
	env.storeMessage(t, "C", "A")
	_, err = env.admission.SendRequest(ctx, "A", "D")
	req.NoError(err)

	contacts, err := users.ListContacts(ctx, "A")
	req.NoError(err)
	req.ElementsMatch([]string{"B", "C"}, lo.Map(contacts, func(u domain.User, _ int) string { return u.ID }))
}

func TestUser_Reindex_Feeds_Every_Profile(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "A", "B")
	users, index := newUserService(t, env)
	index.EXPECT().Index(gomock.Any()).Return(nil).Times(2)

	count, err := users.Reindex(context.Background())

	req.NoError(err)
	req.Equal(2, count)
}
