package repositories

import (
	"chat-gate/domain"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

type diskRequest struct {
	ID          string    `cbor:"id"`
	RequesterID string    `cbor:"requester_id"`
	RecipientID string    `cbor:"recipient_id"`
	Status      string    `cbor:"status"`
	CreatedAt   time.Time `cbor:"created_at"`
	UpdatedAt   time.Time `cbor:"updated_at"`
	ExpiresAt   time.Time `cbor:"expires_at"`
}

func (tx *Tx) RequestByID(id uuid.UUID) (domain.ConversationRequest, error) {
	var disk diskRequest
	if err := tx.get(requestKey(id), &disk); err != nil {
		return domain.ConversationRequest{}, err
	}
	return toRequest(disk)
}

// RequestByPair returns the single request between a and b, whatever its direction.
// The pair key is read even when absent, so two transactions racing to create
// the same pair conflict at commit.
func (tx *Tx) RequestByPair(a, b string) (domain.ConversationRequest, error) {
	var ref string
	if err := tx.get(requestPairKey(domain.NewPair(a, b)), &ref); err != nil {
		return domain.ConversationRequest{}, err
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return domain.ConversationRequest{}, err
	}
	return tx.RequestByID(id)
}

// PutRequest creates or updates r. It refuses a second request for a pair that
// already has one, which is the storage level uniqueness guarantee.
func (tx *Tx) PutRequest(r domain.ConversationRequest) error {
	pairKey := requestPairKey(domain.NewPair(r.RequesterID, r.RecipientID))
	var ref string
	err := tx.get(pairKey, &ref)
	switch {
	case err == nil && ref != r.ID.String():
		return ErrDuplicatePair
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	if err = tx.put(requestKey(r.ID), fromRequest(r)); err != nil {
		return err
	}
	if err = tx.put(pairKey, r.ID.String()); err != nil {
		return err
	}
	if err = tx.mark(requestUserKey(r.RequesterID, r.ID)); err != nil {
		return err
	}
	return tx.mark(requestUserKey(r.RecipientID, r.ID))
}

// RequestsForUser returns every request userID takes part in, newest first.
func (tx *Tx) RequestsForUser(userID string) ([]domain.ConversationRequest, error) {
	var requests []domain.ConversationRequest
	for _, suffix := range tx.keySuffixes(requestUserPrefix(userID)) {
		id, err := uuid.Parse(suffix)
		if err != nil {
			return nil, err
		}
		r, err := tx.RequestByID(id)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func fromRequest(r domain.ConversationRequest) diskRequest {
	return diskRequest{
		ID:          r.ID.String(),
		RequesterID: r.RequesterID,
		RecipientID: r.RecipientID,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

func toRequest(disk diskRequest) (domain.ConversationRequest, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.ConversationRequest{}, err
	}
	return domain.ConversationRequest{
		ID:          id,
		RequesterID: disk.RequesterID,
		RecipientID: disk.RecipientID,
		Status:      domain.RequestStatus(disk.Status),
		CreatedAt:   disk.CreatedAt.UTC(),
		UpdatedAt:   disk.UpdatedAt.UTC(),
		ExpiresAt:   disk.ExpiresAt.UTC(),
	}, nil
}
