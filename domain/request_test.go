package domain

import (
	"chat-gate/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewConversationRequest_Rejects_Self(t *testing.T) {
	_, err := NewConversationRequest("alice", "alice", StatusPending, t0, DefaultRequestTTL)
	require.ErrorIs(t, err, errors.ErrSelfRequest)
}

func TestConversationRequest_Transitions_Only_From_Pending(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name string
		move func(r *ConversationRequest, now time.Time) error
		want RequestStatus
	}{
		{"accept", (*ConversationRequest).Accept, StatusAccepted},
		{"reject", (*ConversationRequest).Reject, StatusRejected},
		{"cancel", (*ConversationRequest).Cancel, StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a pending request
			r, err := NewConversationRequest("alice", "bob", StatusPending, t0, DefaultRequestTTL)
			req.NoError(err)

			// When it moves once
			later := t0.Add(time.Minute)
			req.NoError(tt.move(&r, later))
			req.Equal(tt.want, r.Status)
			req.Equal(later, r.UpdatedAt)

			// Then a second move is a conflict naming the current status
			err = tt.move(&r, later.Add(time.Minute))
			req.ErrorIs(err, errors.ErrRequestNotPending)
			var e *errors.Error
			req.True(errors.As(err, &e))
			req.Equal(string(tt.want), e.Meta["status"])
			req.Equal(later, r.UpdatedAt)
		})
	}
}

func TestConversationRequest_Reopen_Flips_Direction(t *testing.T) {
	req := require.New(t)

	// Given alice asked bob and bob refused
	r, err := NewConversationRequest("alice", "bob", StatusPending, t0, DefaultRequestTTL)
	req.NoError(err)
	req.NoError(r.Reject(t0))
	req.True(r.CanReopen())

	// When bob asks back
	later := t0.Add(time.Hour)
	req.NoError(r.Reopen("bob", "alice", later, DefaultRequestTTL))

	// Then the same row is pending again, pointing from bob
	req.Equal(StatusPending, r.Status)
	req.Equal("bob", r.RequesterID)
	req.Equal("alice", r.RecipientID)
	req.Equal(later.Add(DefaultRequestTTL), r.ExpiresAt)
	req.Equal(t0, r.CreatedAt)
}

func TestConversationRequest_Reopen_Refuses_Live_States(t *testing.T) {
	req := require.New(t)
	for _, status := range []RequestStatus{StatusPending, StatusAccepted, StatusBlocked} {
		r := ConversationRequest{RequesterID: "alice", RecipientID: "bob", Status: status}
		req.False(r.CanReopen())
		req.ErrorIs(r.Reopen("alice", "bob", t0, DefaultRequestTTL), errors.ErrRequestNotPending)
	}
}

func TestConversationRequest_Participants(t *testing.T) {
	req := require.New(t)
	r := ConversationRequest{RequesterID: "alice", RecipientID: "bob"}

	req.True(r.IsParticipant("alice"))
	req.True(r.IsParticipant("bob"))
	req.False(r.IsParticipant("carol"))
	req.Equal("bob", r.Counterpart("alice"))
	req.Equal("alice", r.Counterpart("bob"))
}

func TestNewPair_Is_Unordered(t *testing.T) {
	require.Equal(t, NewPair("bob", "alice"), NewPair("alice", "bob"))
	require.Equal(t, Pair{Low: "alice", High: "bob"}, NewPair("bob", "alice"))
}
