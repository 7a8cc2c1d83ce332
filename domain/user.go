package domain

import (
	"strings"
	"time"
)

// User is the public profile the chat gate keeps for an authenticated identity.
// Credentials live with the identity provider, not here.
type User struct {
	ID         string
	Email      string
	FullName   string
	ProfilePic string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NormalizeEmail is the form used for uniqueness and search.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
