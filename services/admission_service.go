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
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IAdmissionService interface {
	SendRequest(ctx context.Context, requesterID, recipientID string) (SendRequestResult, error)
	AcceptRequest(ctx context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error)
	RejectRequest(ctx context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error)
	CancelRequest(ctx context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error)
	GetStatus(ctx context.Context, userA, userB string) (*domain.ConversationRequest, error)
	CanExchangeDirectMessages(ctx context.Context, userA, userB string) (bool, error)
	ListIncoming(ctx context.Context, userID string) ([]domain.ConversationRequest, error)
	ListOutgoing(ctx context.Context, userID string) ([]domain.ConversationRequest, error)
}

type SendRequestResult struct {
	Request domain.ConversationRequest
	Outcome domain.SendOutcome
}

// AdmissionService owns the ConversationRequest lifecycle and the predicate
// deciding whether two users may exchange direct messages.
type AdmissionService struct {
	store      *repositories.Store
	notifier   contract.INotifier
	clock      clock.Clock
	log        *slog.Logger
	requestTTL time.Duration
}

func NewAdmissionService(store *repositories.Store, notifier contract.INotifier,
	clk clock.Clock, log *slog.Logger, requestTTL time.Duration) *AdmissionService {
	return &AdmissionService{store: store, notifier: notifier, clock: clk, log: log, requestTTL: requestTTL}
}

// SendRequest asks recipientID for permission to chat.
// The pair lookup (both directions), the legacy history check and the write
// run in one transaction. When a symmetric call commits first, this call
// returns the winner's row instead of failing.
func (s *AdmissionService) SendRequest(_ context.Context, requesterID, recipientID string) (SendRequestResult, error) {
	if requesterID == recipientID {
		return SendRequestResult{}, errors.ErrSelfRequest
	}

	var result SendRequestResult
	err := s.store.Update(func(tx *repositories.Tx) error {
		if _, err := tx.UserByID(recipientID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return errors.ErrUserNotFound
			}
			return err
		}

		now := s.clock.Now()
		existing, err := tx.RequestByPair(requesterID, recipientID)
		switch {
		case err == nil:
			return s.resend(tx, &existing, requesterID, recipientID, now, &result)
		case !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		// No request yet: prior history means the conversation predates requests
		status, outcome := domain.StatusPending, domain.OutcomeCreated
		if tx.HasDirectHistory(requesterID, recipientID) {
			status, outcome = domain.StatusAccepted, domain.OutcomeAutoAccepted
		}
		r, err := domain.NewConversationRequest(requesterID, recipientID, status, now, s.requestTTL)
		if err != nil {
			return err
		}
		result = SendRequestResult{Request: r, Outcome: outcome}
		return tx.PutRequest(r)
	})

	if errors.Is(err, repositories.ErrConflict) || errors.Is(err, repositories.ErrDuplicatePair) {
		return s.raceLost(requesterID, recipientID)
	}
	if err != nil {
		return SendRequestResult{}, s.fail("send request", err)
	}

	switch result.Outcome {
	case domain.OutcomeCreated, domain.OutcomeReopened:
		s.notifier.NotifyUsers(event.RequestSent{Request: result.Request}, recipientID)
	}
	return result, nil
}

// resend handles a send on a pair that already has a request.
func (s *AdmissionService) resend(tx *repositories.Tx, existing *domain.ConversationRequest,
	requesterID, recipientID string, now time.Time, result *SendRequestResult) error {
	switch existing.Status {
	case domain.StatusPending:
		*result = SendRequestResult{Request: *existing, Outcome: domain.OutcomeExisting}
		return nil
	case domain.StatusAccepted:
		return errors.ErrConversationExists.WithMeta(
			"status", string(existing.Status),
			"request_id", existing.ID.String())
	case domain.StatusBlocked:
		return errors.ErrRequestBlocked.WithMeta(
			"status", string(existing.Status),
			"request_id", existing.ID.String())
	}

	if err := existing.Reopen(requesterID, recipientID, now, s.requestTTL); err != nil {
		return err
	}
	*result = SendRequestResult{Request: *existing, Outcome: domain.OutcomeReopened}
	return tx.PutRequest(*existing)
}

func (s *AdmissionService) raceLost(requesterID, recipientID string) (SendRequestResult, error) {
	var winner domain.ConversationRequest
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		winner, err = tx.RequestByPair(requesterID, recipientID)
		return err
	})
	if err != nil {
		return SendRequestResult{}, s.fail("re-read request after conflict", err)
	}
	s.log.Debug("concurrent send request resolved",
		"requester_id", requesterID,
		"recipient_id", recipientID,
		"request_id", winner.ID)
	return SendRequestResult{Request: winner, Outcome: domain.OutcomeExisting}, nil
}

// AcceptRequest lets the recipient open the conversation. Both sides are notified.
func (s *AdmissionService) AcceptRequest(_ context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error) {
	r, err := s.transition(requestID, actorID, func(r *domain.ConversationRequest, now time.Time) error {
		if r.RecipientID != actorID {
			return errors.ErrOnlyRecipient
		}
		return r.Accept(now)
	})
	if err != nil {
		return domain.ConversationRequest{}, err
	}
	s.notifier.NotifyUsers(event.RequestAccepted{Request: r}, r.RequesterID, r.RecipientID)
	return r, nil
}

func (s *AdmissionService) RejectRequest(_ context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error) {
	r, err := s.transition(requestID, actorID, func(r *domain.ConversationRequest, now time.Time) error {
		if r.RecipientID != actorID {
			return errors.ErrOnlyRecipient
		}
		return r.Reject(now)
	})
	if err != nil {
		return domain.ConversationRequest{}, err
	}
	s.notifier.NotifyUsers(event.RequestUpdated{Request: r}, r.RequesterID)
	return r, nil
}

func (s *AdmissionService) CancelRequest(_ context.Context, requestID uuid.UUID, actorID string) (domain.ConversationRequest, error) {
	r, err := s.transition(requestID, actorID, func(r *domain.ConversationRequest, now time.Time) error {
		if r.RequesterID != actorID {
			return errors.ErrOnlyRequester
		}
		return r.Cancel(now)
	})
	if err != nil {
		return domain.ConversationRequest{}, err
	}
	s.notifier.NotifyUsers(event.RequestUpdated{Request: r}, r.RecipientID)
	return r, nil
}

// transition loads the request, applies change and saves it in one
// transaction. A lost race is retried, so the change is judged against the
// status that won.
func (s *AdmissionService) transition(requestID uuid.UUID, actorID string,
	change func(r *domain.ConversationRequest, now time.Time) error) (domain.ConversationRequest, error) {
	var updated domain.ConversationRequest
	err := retryOnConflict(func() error {
		return s.store.Update(func(tx *repositories.Tx) error {
			r, err := tx.RequestByID(requestID)
			if errors.Is(err, repositories.ErrNotFound) {
				return errors.ErrRequestNotFound
			}
			if err != nil {
				return err
			}
			if err = change(&r, s.clock.Now()); err != nil {
				return err
			}
			updated = r
			return tx.PutRequest(r)
		})
	})
	if err != nil {
		return domain.ConversationRequest{}, s.fail("update request", err, "actor_id", actorID)
	}
	return updated, nil
}

// GetStatus returns the request between the two users in either direction, or nil.
func (s *AdmissionService) GetStatus(_ context.Context, userA, userB string) (*domain.ConversationRequest, error) {
	var found *domain.ConversationRequest
	err := s.store.View(func(tx *repositories.Tx) error {
		r, err := tx.RequestByPair(userA, userB)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &r
		return nil
	})
	if err != nil {
		return nil, s.fail("get request status", err)
	}
	return found, nil
}

func (s *AdmissionService) CanExchangeDirectMessages(ctx context.Context, userA, userB string) (bool, error) {
	err := s.CheckDirect(ctx, userA, userB)
	if err == nil {
		return true, nil
	}
	if errors.KindOf(err) == errors.KindAuthorization {
		return false, nil
	}
	return false, err
}

// CheckDirect evaluates the gate read-only and returns why it is closed, if it is.
func (s *AdmissionService) CheckDirect(_ context.Context, senderID, receiverID string) error {
	err := s.store.View(func(tx *repositories.Tx) error {
		return s.evaluate(tx, senderID, receiverID, false)
	})
	if err != nil && errors.KindOf(err) == errors.KindInternal {
		return s.fail("check direct gate", err)
	}
	return err
}

// Admit evaluates the gate inside a write transaction. A pair with message
// history but no request row gets an accepted row, committed with the write
// the gate guards.
func (s *AdmissionService) Admit(tx *repositories.Tx, senderID, receiverID string) error {
	return s.evaluate(tx, senderID, receiverID, true)
}

func (s *AdmissionService) evaluate(tx *repositories.Tx, senderID, receiverID string, backfill bool) error {
	r, err := tx.RequestByPair(senderID, receiverID)
	found := err == nil
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if found && r.Status == domain.StatusAccepted {
		return nil
	}

	if tx.HasDirectHistory(senderID, receiverID) {
		if found || !backfill {
			return nil
		}
		accepted, err := domain.NewConversationRequest(senderID, receiverID, domain.StatusAccepted,
			s.clock.Now(), s.requestTTL)
		if err != nil {
			return err
		}
		s.log.Info("legacy conversation admitted", "request_id", accepted.ID)
		return tx.PutRequest(accepted)
	}

	if found {
		return errors.ErrRequestNotAccepted.WithMeta(
			"status", string(r.Status),
			"request_id", r.ID.String())
	}
	return errors.ErrRequestNotSent
}

func (s *AdmissionService) ListIncoming(_ context.Context, userID string) ([]domain.ConversationRequest, error) {
	return s.pending(userID, func(r domain.ConversationRequest) bool { return r.RecipientID == userID })
}

func (s *AdmissionService) ListOutgoing(_ context.Context, userID string) ([]domain.ConversationRequest, error) {
	return s.pending(userID, func(r domain.ConversationRequest) bool { return r.RequesterID == userID })
}

func (s *AdmissionService) pending(userID string, side func(domain.ConversationRequest) bool) ([]domain.ConversationRequest, error) {
	var requests []domain.ConversationRequest
	err := s.store.View(func(tx *repositories.Tx) error {
		all, err := tx.RequestsForUser(userID)
		requests = all
		return err
	})
	if err != nil {
		return nil, s.fail("list requests", err, "user_id", userID)
	}
	return lo.Filter(requests, func(r domain.ConversationRequest, _ int) bool {
		return r.Status == domain.StatusPending && side(r)
	}), nil
}

func (s *AdmissionService) fail(op string, err error, attrs ...any) error {
	return internalError(s.log, op, err, attrs...)
}
