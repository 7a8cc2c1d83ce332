package repositories

import (
	"chat-gate/domain"
	"errors"
	"time"
)

type diskUser struct {
	ID         string    `cbor:"id"`
	Email      string    `cbor:"email"`
	FullName   string    `cbor:"full_name"`
	ProfilePic string    `cbor:"profile_pic,omitempty"`
	CreatedAt  time.Time `cbor:"created_at"`
	UpdatedAt  time.Time `cbor:"updated_at"`
}

func (tx *Tx) UserByID(id string) (domain.User, error) {
	var disk diskUser
	if err := tx.get(userKey(id), &disk); err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func (tx *Tx) UserByEmail(email string) (domain.User, error) {
	var id string
	if err := tx.get(emailKey(domain.NormalizeEmail(email)), &id); err != nil {
		return domain.User{}, err
	}
	return tx.UserByID(id)
}

// PutUser stores u and its email index. An email owned by another user is
// rejected with ErrDuplicateEmail; a changed email releases the old one.
func (tx *Tx) PutUser(u domain.User) error {
	email := domain.NormalizeEmail(u.Email)
	var owner string
	err := tx.get(emailKey(email), &owner)
	switch {
	case err == nil && owner != u.ID:
		return ErrDuplicateEmail
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	previous, err := tx.UserByID(u.ID)
	switch {
	case err == nil && domain.NormalizeEmail(previous.Email) != email:
		if err = tx.txn.Delete(emailKey(domain.NormalizeEmail(previous.Email))); err != nil {
			return err
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}

	if err = tx.put(emailKey(email), u.ID); err != nil {
		return err
	}
	return tx.put(userKey(u.ID), fromUser(u))
}

// UsersByIDs resolves ids in order, skipping unknown ones.
func (tx *Tx) UsersByIDs(ids []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := tx.UserByID(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// AllUsers is used to rebuild the search index at startup.
func (tx *Tx) AllUsers() ([]domain.User, error) {
	return tx.UsersByIDs(tx.keySuffixes(prefixUser))
}

func fromUser(u domain.User) diskUser {
	return diskUser{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func toUser(disk diskUser) domain.User {
	return domain.User{
		ID:         disk.ID,
		Email:      disk.Email,
		FullName:   disk.FullName,
		ProfilePic: disk.ProfilePic,
		CreatedAt:  disk.CreatedAt.UTC(),
		UpdatedAt:  disk.UpdatedAt.UTC(),
	}
}
