// Package domain contains core concepts of the chat gate.
// This file defines Message and its shape rules.
// Messages are immutable once persisted.
package domain

import (
	"chat-gate/errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	KindDirect MessageKind = "direct"
	KindGroup  MessageKind = "group"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Content is the body of a message. At least one field is set.
type Content struct {
	Text     string
	ImageURL string
	VideoURL string
}

func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && c.ImageURL == "" && c.VideoURL == ""
}

// Message targets either a receiver (direct) or a group, never both.
type Message struct {
	ID         uuid.UUID // unique identifier
	Kind       MessageKind
	SenderID   string
	ReceiverID string    // set for direct messages
	GroupID    uuid.UUID // set for group messages
	Content    Content
	CreatedAt  time.Time
}

func NewDirectMessage(senderID, receiverID string, content Content, now time.Time) (Message, error) {
	m := Message{
		ID:         uuid.New(),
		Kind:       KindDirect,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  now,
	}
	return m, m.Validate()
}

func NewGroupMessage(senderID string, groupID uuid.UUID, content Content, now time.Time) (Message, error) {
	m := Message{
		ID:        uuid.New(),
		Kind:      KindGroup,
		SenderID:  senderID,
		GroupID:   groupID,
		Content:   content,
		CreatedAt: now,
	}
	return m, m.Validate()
}

// Validate checks the exactly-one-target rule and that some content is present.
func (m Message) Validate() error {
	hasReceiver := m.ReceiverID != ""
	hasGroup := m.GroupID != uuid.Nil
	if hasReceiver == hasGroup {
		return errors.ErrMessageShape
	}
	if (m.Kind == KindDirect) != hasReceiver {
		return errors.ErrMessageShape
	}
	if m.Content.IsEmpty() {
		return errors.ErrEmptyMessage
	}
	return nil
}

// Involves reports whether userID sent or received a direct message.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}
