package wire

import (
	"chat-gate/domain"
	"chat-gate/errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	ProfilePic string    `json:"profilePic,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Request struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	RecipientID string    `json:"recipientId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PictureURL  string    `json:"groupPicture,omitempty"`
	AdminID     string    `json:"adminId"`
	Members     []string  `json:"members"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Message struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	GroupID    string    `json:"groupId,omitempty"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	Video      string    `json:"video,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Requests. Media fields are data URLs or bare base64.

type Empty struct{}

type UpsertProfileRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// UserRequest names the other user of a call: the profile to read, the
// recipient of a request, the peer of a conversation.
type UserRequest struct {
	UserID string `json:"userId"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"members,omitempty"`
	Picture     string   `json:"groupPicture,omitempty"`
}

type UpdateGroupRequest struct {
	GroupID     string  `json:"groupId"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Picture     string  `json:"groupPicture,omitempty"`
}

type GroupRequest struct {
	GroupID string `json:"groupId"`
}

type MembersRequest struct {
	GroupID   string   `json:"groupId"`
	MemberIDs []string `json:"members"`
}

type MemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

type SendDirectRequest struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
	Video      string `json:"video,omitempty"`
}

type SendGroupRequest struct {
	GroupID string `json:"groupId"`
	Text    string `json:"text,omitempty"`
	Image   string `json:"image,omitempty"`
	Video   string `json:"video,omitempty"`
}

type RequestIDRequest struct {
	RequestID string `json:"requestId"`
}

// Responses.

type UsersResponse struct {
	Users []User `json:"users"`
}

type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

type RequestsResponse struct {
	Requests []Request `json:"requests"`
}

type SendRequestResponse struct {
	Request Request `json:"request"`
	Outcome string  `json:"outcome"`
}

// RequestStatusResponse carries no request when the pair never had one.
type RequestStatusResponse struct {
	Request    *Request `json:"request,omitempty"`
	CanMessage bool     `json:"canMessage"`
}

func FromUser(u domain.User) User {
	return User{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func FromUsers(users []domain.User) []User {
	return lo.Map(users, func(u domain.User, _ int) User { return FromUser(u) })
}

func FromRequest(r domain.ConversationRequest) Request {
	return Request{
		ID:          r.ID.String(),
		RequesterID: r.RequesterID,
		RecipientID: r.RecipientID,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

func FromRequests(requests []domain.ConversationRequest) []Request {
	return lo.Map(requests, func(r domain.ConversationRequest, _ int) Request { return FromRequest(r) })
}

func FromGroup(g domain.Group) Group {
	return Group{
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

func FromGroups(groups []domain.Group) []Group {
	return lo.Map(groups, func(g domain.Group, _ int) Group { return FromGroup(g) })
}

func FromMessage(m domain.Message) Message {
	msg := Message{
		ID:         m.ID.String(),
		Kind:       string(m.Kind),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Content.Text,
		Image:      m.Content.ImageURL,
		Video:      m.Content.VideoURL,
		CreatedAt:  m.CreatedAt,
	}
	if m.GroupID != uuid.Nil {
		msg.GroupID = m.GroupID.String()
	}
	return msg
}

func FromMessages(messages []domain.Message) []Message {
	return lo.Map(messages, func(m domain.Message, _ int) Message { return FromMessage(m) })
}

// ParseID parses a uuid coming from a client, reporting invalid as a validation error.
func ParseID(raw string, invalid *errors.Error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}
