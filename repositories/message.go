package repositories

import (
	"chat-gate/codec"
	"chat-gate/domain"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type diskMessage struct {
	ID         string    `cbor:"id"`
	Kind       string    `cbor:"kind"`
	SenderID   string    `cbor:"sender_id"`
	ReceiverID string    `cbor:"receiver_id,omitempty"`
	GroupID    string    `cbor:"group_id,omitempty"`
	Text       string    `cbor:"text,omitempty"`
	ImageURL   string    `cbor:"image_url,omitempty"`
	VideoURL   string    `cbor:"video_url,omitempty"`
	CreatedAt  time.Time `cbor:"created_at"`
}

// PutMessage persists m under its conversation. Direct messages also record
// both participants as contacts of each other.
func (tx *Tx) PutMessage(m domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.Kind == domain.KindGroup {
		return tx.put(groupMessageKey(m.GroupID, m.CreatedAt, m.ID), fromMessage(m))
	}

	pair := domain.NewPair(m.SenderID, m.ReceiverID)
	if err := tx.put(directMessageKey(pair, m.CreatedAt, m.ID), fromMessage(m)); err != nil {
		return err
	}
	if err := tx.mark(contactKey(m.SenderID, m.ReceiverID)); err != nil {
		return err
	}
	return tx.mark(contactKey(m.ReceiverID, m.SenderID))
}

// HasDirectHistory reports whether a and b already exchanged a message.
func (tx *Tx) HasDirectHistory(a, b string) bool {
	return tx.hasPrefix(directPrefix(domain.NewPair(a, b)))
}

// DirectMessages returns the conversation between a and b, oldest first.
// A positive limit keeps only the most recent messages.
func (tx *Tx) DirectMessages(a, b string, limit int) ([]domain.Message, error) {
	return tx.messages(directPrefix(domain.NewPair(a, b)), limit)
}

func (tx *Tx) GroupMessages(groupID uuid.UUID, limit int) ([]domain.Message, error) {
	return tx.messages(groupMessagePrefix(groupID), limit)
}

// DirectContacts returns the users userID exchanged at least one direct message with.
func (tx *Tx) DirectContacts(userID string) []string {
	return lo.Map(tx.keySuffixes(contactPrefix(userID)), func(s string, _ int) string {
		return fromSegment(s)
	})
}

// messages scans a conversation prefix. Without a limit it reads forward;
// with one it reads backward from the newest key and restores chronological order.
func (tx *Tx) messages(prefix string, limit int) ([]domain.Message, error) {
	options := badger.DefaultIteratorOptions
	options.Reverse = limit > 0
	it := tx.txn.NewIterator(options)
	defer it.Close()

	p := []byte(prefix)
	seekKey := p
	if options.Reverse {
		seekKey = append([]byte(prefix), []byte(lastTimestamp)...)
	}

	var messages []domain.Message
	for it.Seek(seekKey); it.ValidForPrefix(p); it.Next() {
		if limit > 0 && len(messages) == limit {
			break
		}
		var disk diskMessage
		err := it.Item().Value(func(val []byte) error {
			return codec.Unmarshal(val, &disk)
		})
		if err != nil {
			return nil, err
		}
		m, err := toMessage(disk)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if options.Reverse {
		messages = lo.Reverse(messages)
	}
	return messages, nil
}

func fromMessage(m domain.Message) diskMessage {
	disk := diskMessage{
		ID:         m.ID.String(),
		Kind:       string(m.Kind),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Content.Text,
		ImageURL:   m.Content.ImageURL,
		VideoURL:   m.Content.VideoURL,
		CreatedAt:  m.CreatedAt,
	}
	if m.GroupID != uuid.Nil {
		disk.GroupID = m.GroupID.String()
	}
	return disk
}

func toMessage(disk diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	var groupID uuid.UUID
	if disk.GroupID != "" {
		if groupID, err = uuid.Parse(disk.GroupID); err != nil {
			return domain.Message{}, err
		}
	}
	return domain.Message{
		ID:         id,
		Kind:       domain.MessageKind(disk.Kind),
		SenderID:   disk.SenderID,
		ReceiverID: disk.ReceiverID,
		GroupID:    groupID,
		Content: domain.Content{
			Text:     disk.Text,
			ImageURL: disk.ImageURL,
			VideoURL: disk.VideoURL,
		},
		CreatedAt: disk.CreatedAt.UTC(),
	}, nil
}
