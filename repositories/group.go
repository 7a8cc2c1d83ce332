package repositories

import (
	"chat-gate/domain"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type diskGroup struct {
	ID          string    `cbor:"id"`
	Name        string    `cbor:"name"`
	Description string    `cbor:"description,omitempty"`
	PictureURL  string    `cbor:"picture_url,omitempty"`
	AdminID     string    `cbor:"admin_id"`
	Members     []string  `cbor:"members"`
	IsActive    bool      `cbor:"is_active"`
	CreatedAt   time.Time `cbor:"created_at"`
	UpdatedAt   time.Time `cbor:"updated_at"`
}

func (tx *Tx) GroupByID(id uuid.UUID) (domain.Group, error) {
	var disk diskGroup
	if err := tx.get(groupKey(id), &disk); err != nil {
		return domain.Group{}, err
	}
	return toGroup(disk)
}

// PutGroup stores g and keeps the member:{user}:{group} index in step with
// g.Members, dropping entries of members that left.
func (tx *Tx) PutGroup(g domain.Group) error {
	previous, err := tx.GroupByID(g.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	for _, gone := range lo.Without(previous.Members, g.Members...) {
		if err = tx.txn.Delete(memberKey(gone, g.ID)); err != nil {
			return err
		}
	}
	for _, member := range g.Members {
		if err = tx.mark(memberKey(member, g.ID)); err != nil {
			return err
		}
	}
	return tx.put(groupKey(g.ID), fromGroup(g))
}

// GroupsForUser returns the groups userID belongs to, active or not.
func (tx *Tx) GroupsForUser(userID string) ([]domain.Group, error) {
	var groups []domain.Group
	for _, suffix := range tx.keySuffixes(memberPrefix(userID)) {
		id, err := uuid.Parse(suffix)
		if err != nil {
			return nil, err
		}
		g, err := tx.GroupByID(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func fromGroup(g domain.Group) diskGroup {
	return diskGroup{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		PictureURL:  g.PictureURL,
		AdminID:     g.AdminID,
		Members:     g.Members,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toGroup(disk diskGroup) (domain.Group, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:          id,
		Name:        disk.Name,
		Description: disk.Description,
		PictureURL:  disk.PictureURL,
		AdminID:     disk.AdminID,
		Members:     disk.Members,
		IsActive:    disk.IsActive,
		CreatedAt:   disk.CreatedAt.UTC(),
		UpdatedAt:   disk.UpdatedAt.UTC(),
	}, nil
}
