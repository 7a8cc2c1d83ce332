package domain

import (
	"chat-gate/errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Group is a named set of members owned by a single admin.
// The admin is always a member; IsActive=false is a soft delete.
type Group struct {
	ID          uuid.UUID
	Name        string
	Description string
	PictureURL  string
	AdminID     string
	Members     []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupUpdate is a partial update: nil fields keep their previous value.
type GroupUpdate struct {
	Name        *string
	Description *string
	PictureURL  *string
}

// NewGroup builds an active group whose members are the admin plus memberIDs,
// deduplicated. The admin cannot be left out by the caller.
func NewGroup(adminID, name, description string, memberIDs []string, now time.Time) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, errors.ErrGroupNameRequired
	}
	members := lo.Uniq(lo.Compact(append([]string{adminID}, memberIDs...)))
	return Group{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		AdminID:     adminID,
		Members:     members,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (g Group) IsMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

func (g Group) IsAdmin(userID string) bool {
	return g.AdminID == userID
}

// AddMembers appends the ids not already present and returns the ones added.
func (g *Group) AddMembers(memberIDs []string, now time.Time) []string {
	var added []string
	for _, id := range lo.Uniq(lo.Compact(memberIDs)) {
		if g.IsMember(id) {
			continue
		}
		g.Members = append(g.Members, id)
		added = append(added, id)
	}
	if len(added) > 0 {
		g.UpdatedAt = now
	}
	return added
}

// RemoveMember drops memberID. The admin can never be removed; removing a
// non-member is a no-op and reports false.
func (g *Group) RemoveMember(memberID string, now time.Time) (bool, error) {
	if memberID == g.AdminID {
		return false, errors.ErrCannotRemoveAdmin
	}
	if !g.IsMember(memberID) {
		return false, nil
	}
	g.Members = lo.Without(g.Members, memberID)
	g.UpdatedAt = now
	return true, nil
}

// Leave removes userID on their own initiative. The admin must delete the group instead.
func (g *Group) Leave(userID string, now time.Time) (bool, error) {
	if userID == g.AdminID {
		return false, errors.ErrAdminCannotLeave
	}
	return g.RemoveMember(userID, now)
}

// Apply performs a partial update. An empty name is ignored rather than
// clearing the required field.
func (g *Group) Apply(update GroupUpdate, now time.Time) {
	if update.Name != nil {
		if name := strings.TrimSpace(*update.Name); name != "" {
			g.Name = name
		}
	}
	if update.Description != nil {
		g.Description = *update.Description
	}
	if update.PictureURL != nil && *update.PictureURL != "" {
		g.PictureURL = *update.PictureURL
	}
	g.UpdatedAt = now
}

// Deactivate soft deletes the group. Calling it twice is harmless.
func (g *Group) Deactivate(now time.Time) {
	if !g.IsActive {
		return
	}
	g.IsActive = false
	g.UpdatedAt = now
}
