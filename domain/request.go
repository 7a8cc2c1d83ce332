// Package domain contains core concepts of the chat gate.
// This file defines the ConversationRequest state machine that decides whether
// two users may exchange direct messages.
package domain

import (
	"chat-gate/errors"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
	// StatusBlocked is reserved: no transition produces it yet.
	StatusBlocked RequestStatus = "blocked"
)

// DefaultRequestTTL is stored on every request as ExpiresAt. Nothing sweeps it.
const DefaultRequestTTL = 7 * 24 * time.Hour

// SendOutcome tags what SendRequest did, so transports can tell a creation
// from an idempotent replay without inspecting the row.
type SendOutcome string

const (
	OutcomeCreated      SendOutcome = "created"
	OutcomeExisting     SendOutcome = "existing"
	OutcomeReopened     SendOutcome = "reopened"
	OutcomeAutoAccepted SendOutcome = "auto_accepted"
)

type ConversationRequest struct {
	ID          uuid.UUID
	RequesterID string
	RecipientID string
	Status      RequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// NewConversationRequest creates a request in the given initial state.
// Only pending (a regular send) and accepted (legacy history) are valid.
func NewConversationRequest(requesterID, recipientID string, status RequestStatus,
	now time.Time, ttl time.Duration) (ConversationRequest, error) {
	if requesterID == recipientID {
		return ConversationRequest{}, errors.ErrSelfRequest
	}
	return ConversationRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

func (r ConversationRequest) IsParticipant(userID string) bool {
	return r.RequesterID == userID || r.RecipientID == userID
}

// Counterpart returns the other side of the request for userID.
func (r ConversationRequest) Counterpart(userID string) string {
	if r.RequesterID == userID {
		return r.RecipientID
	}
	return r.RequesterID
}

// CanReopen reports whether a new send may bring the request back to pending.
func (r ConversationRequest) CanReopen() bool {
	return r.Status == StatusRejected || r.Status == StatusCancelled
}

// Reopen puts a rejected or cancelled request back to pending, pointing in the
// direction of the new send.
func (r *ConversationRequest) Reopen(requesterID, recipientID string, now time.Time, ttl time.Duration) error {
	if !r.CanReopen() {
		return r.notPending()
	}
	r.Status = StatusPending
	r.RequesterID = requesterID
	r.RecipientID = recipientID
	r.UpdatedAt = now
	r.ExpiresAt = now.Add(ttl)
	return nil
}

// Accept, Reject and Cancel only apply to a pending request; the actor check
// is done by the caller because it depends on the operation.
func (r *ConversationRequest) Accept(now time.Time) error {
	return r.transition(StatusAccepted, now)
}

func (r *ConversationRequest) Reject(now time.Time) error {
	return r.transition(StatusRejected, now)
}

func (r *ConversationRequest) Cancel(now time.Time) error {
	return r.transition(StatusCancelled, now)
}

func (r *ConversationRequest) transition(to RequestStatus, now time.Time) error {
	if r.Status != StatusPending {
		return r.notPending()
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// notPending builds the conflict error naming the current status.
func (r ConversationRequest) notPending() error {
	return errors.ErrRequestNotPending.WithMeta(
		"status", string(r.Status),
		"request_id", r.ID.String(),
	)
}

// Pair is the unordered identity of a conversation between two users.
type Pair struct {
	Low  string
	High string
}

func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}
