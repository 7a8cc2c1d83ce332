package services

import (
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/errors"
	"chat-gate/repositories"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAdmission_SendRequest_Validation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice")
	ctx := context.Background()

	t.Run("should refuse a request to yourself", func(t *testing.T) {
		req := require.New(t)
		_, err := env.admission.SendRequest(ctx, "alice", "alice")
		req.ErrorIs(err, errors.ErrSelfRequest)
		req.Equal(errors.KindValidation, errors.KindOf(err))
	})

	t.Run("should refuse an unknown recipient", func(t *testing.T) {
		req := require.New(t)
		_, err := env.admission.SendRequest(ctx, "alice", "ghost")
		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}

func TestAdmission_SendRequest_Creates_Then_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	// When alice asks bob
	first, err := env.admission.SendRequest(ctx, "alice", "bob")
	req.NoError(err)

	// Then a pending request exists and bob is notified
	req.Equal(domain.OutcomeCreated, first.Outcome)
	req.Equal(domain.StatusPending, first.Request.Status)
	req.Equal(start.Add(domain.DefaultRequestTTL), first.Request.ExpiresAt)
	deliveries := env.drain()
	req.Len(deliveries, 1)
	req.Equal([]string{"bob"}, deliveries[0].UserIDs)
	req.Equal(event.RequestSent{Request: first.Request}, deliveries[0].Event)

	// When alice asks again, or bob asks alice
	again, err := env.admission.SendRequest(ctx, "alice", "bob")
	req.NoError(err)
	reverse, err := env.admission.SendRequest(ctx, "bob", "alice")
	req.NoError(err)

	// Then the same pending row comes back and nobody is notified
	req.Equal(domain.OutcomeExisting, again.Outcome)
	req.Equal(first.Request, again.Request)
	req.Equal(first.Request, reverse.Request)
	req.Empty(env.drain())
}

func TestAdmission_Accept_Reject_Cancel_Guards(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob", "carol")
	ctx := context.Background()

	t.Run("only the recipient accepts, both are notified", func(t *testing.T) {
		req := require.New(t)
		sent, err := env.admission.SendRequest(ctx, "alice", "bob")
		req.NoError(err)
		env.drain()

		_, err = env.admission.AcceptRequest(ctx, sent.Request.ID, "alice")
		req.ErrorIs(err, errors.ErrOnlyRecipient)

		accepted, err := env.admission.AcceptRequest(ctx, sent.Request.ID, "bob")
		req.NoError(err)
		req.Equal(domain.StatusAccepted, accepted.Status)

		deliveries := env.drain()
		req.Len(deliveries, 1)
		req.ElementsMatch([]string{"alice", "bob"}, deliveries[0].UserIDs)
		req.Equal(event.TypeRequestAccepted, deliveries[0].Event.Type())

		// A second answer reports the current status
		_, err = env.admission.RejectRequest(ctx, sent.Request.ID, "bob")
		req.ErrorIs(err, errors.ErrRequestNotPending)
		var appErr *errors.Error
		req.True(errors.As(err, &appErr))
		req.Equal("accepted", appErr.Meta["status"])

		// And asking again conflicts with the open conversation
		_, err = env.admission.SendRequest(ctx, "bob", "alice")
		req.ErrorIs(err, errors.ErrConversationExists)
	})

	t.Run("only the requester cancels, the recipient is notified", func(t *testing.T) {
		req := require.New(t)
		sent, err := env.admission.SendRequest(ctx, "alice", "carol")
		req.NoError(err)
		env.drain()

		_, err = env.admission.CancelRequest(ctx, sent.Request.ID, "carol")
		req.ErrorIs(err, errors.ErrOnlyRequester)

		cancelled, err := env.admission.CancelRequest(ctx, sent.Request.ID, "alice")
		req.NoError(err)
		req.Equal(domain.StatusCancelled, cancelled.Status)

		deliveries := env.drain()
		req.Len(deliveries, 1)
		req.Equal([]string{"carol"}, deliveries[0].UserIDs)
		req.Equal(event.RequestUpdated{Request: cancelled}, deliveries[0].Event)
	})

	t.Run("unknown request", func(t *testing.T) {
		req := require.New(t)
		_, err := env.admission.AcceptRequest(ctx, uuid.New(), "bob")
		req.ErrorIs(err, errors.ErrRequestNotFound)
	})
}

func TestAdmission_Rejected_Request_Reopens_In_New_Direction(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	sent, err := env.admission.SendRequest(ctx, "alice", "bob")
	req.NoError(err)
	rejected, err := env.admission.RejectRequest(ctx, sent.Request.ID, "bob")
	req.NoError(err)
	req.Equal(domain.StatusRejected, rejected.Status)
	deliveries := env.drain()
	req.Equal([]string{"alice"}, deliveries[len(deliveries)-1].UserIDs)

	// When bob changes his mind a day later
	env.clock.Advance(24 * time.Hour)
	reopened, err := env.admission.SendRequest(ctx, "bob", "alice")
	req.NoError(err)

	// Then the same row is pending again, from bob to alice
	req.Equal(domain.OutcomeReopened, reopened.Outcome)
	req.Equal(sent.Request.ID, reopened.Request.ID)
	req.Equal("bob", reopened.Request.RequesterID)
	req.Equal("alice", reopened.Request.RecipientID)
	req.Equal(domain.StatusPending, reopened.Request.Status)
	req.Equal(env.clock.Now().Add(domain.DefaultRequestTTL), reopened.Request.ExpiresAt)
	req.Equal([]string{"alice"}, env.drain()[0].UserIDs)
}

func TestAdmission_Legacy_History_Is_Auto_Accepted(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	// Given alice and bob talked before requests existed
	env.storeMessage(t, "bob", "alice")

	// When alice sends a request
	result, err := env.admission.SendRequest(ctx, "alice", "bob")

	// Then it is accepted right away, silently
	req.NoError(err)
	req.Equal(domain.OutcomeAutoAccepted, result.Outcome)
	req.Equal(domain.StatusAccepted, result.Request.Status)
	req.Empty(env.drain())
}

func TestAdmission_Concurrent_Symmetric_Requests_Keep_One_Row(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		a, b := fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i)
		env.seedUsers(t, a, b)

		var wg sync.WaitGroup
		results := make([]SendRequestResult, 2)
		errs := make([]error, 2)
		gate := make(chan struct{})
		for side, pair := range [][2]string{{a, b}, {b, a}} {
			wg.Add(1)
			go func(side int, from, to string) {
				defer wg.Done()
				<-gate
				results[side], errs[side] = env.admission.SendRequest(ctx, from, to)
			}(side, pair[0], pair[1])
		}
		close(gate)
		wg.Wait()

		// Then neither call failed and both see the same pending row
		req.NoError(errs[0])
		req.NoError(errs[1])
		req.Equal(results[0].Request.ID, results[1].Request.ID)
		req.Equal(domain.StatusPending, results[0].Request.Status)

		req.NoError(env.store.View(func(tx *repositories.Tx) error {
			requests, err := tx.RequestsForUser(a)
			req.NoError(err)
			req.Len(requests, 1)
			return nil
		}))
	}
}

func TestAdmission_GetStatus_And_Gate(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob", "carol")
	ctx := context.Background()

	// Given nothing between alice and bob
	status, err := env.admission.GetStatus(ctx, "bob", "alice")
	req.NoError(err)
	req.Nil(status)
	req.ErrorIs(env.admission.CheckDirect(ctx, "alice", "bob"), errors.ErrRequestNotSent)

	// When a request is pending
	sent, err := env.admission.SendRequest(ctx, "alice", "bob")
	req.NoError(err)
	status, err = env.admission.GetStatus(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(sent.Request, *status)
	ok, err := env.admission.CanExchangeDirectMessages(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)
	req.ErrorIs(env.admission.CheckDirect(ctx, "bob", "alice"), errors.ErrRequestNotAccepted)

	// When it is accepted
	_, err = env.admission.AcceptRequest(ctx, sent.Request.ID, "bob")
	req.NoError(err)
	ok, err = env.admission.CanExchangeDirectMessages(ctx, "bob", "alice")
	req.NoError(err)
	req.True(ok)

	// History alone opens the gate too
	env.storeMessage(t, "carol", "alice")
	ok, err = env.admission.CanExchangeDirectMessages(ctx, "alice", "carol")
	req.NoError(err)
	req.True(ok)
}

func TestAdmission_List_Incoming_And_Outgoing(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t, nil, nil)
	env.seedUsers(t, "alice", "bob", "carol", "dave")
	ctx := context.Background()

	toBob, err := env.admission.SendRequest(ctx, "alice", "bob")
	req.NoError(err)
	env.clock.Advance(time.Minute)
	fromCarol, err := env.admission.SendRequest(ctx, "carol", "alice")
	req.NoError(err)
	env.clock.Advance(time.Minute)
	fromDave, err := env.admission.SendRequest(ctx, "dave", "alice")
	req.NoError(err)
	_, err = env.admission.RejectRequest(ctx, fromCarol.Request.ID, "alice")
	req.NoError(err)

	incoming, err := env.admission.ListIncoming(ctx, "alice")
	req.NoError(err)
	outgoing, err := env.admission.ListOutgoing(ctx, "alice")
	req.NoError(err)

	req.Equal([]domain.ConversationRequest{fromDave.Request}, incoming)
	req.Equal([]domain.ConversationRequest{toBob.Request}, outgoing)
}
