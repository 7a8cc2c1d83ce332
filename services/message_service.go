package services

import (
	"chat-gate/clock"
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/domain/event"
	"chat-gate/errors"
	"chat-gate/repositories"
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/google/uuid"
)

type IMessageService interface {
	SendDirect(ctx context.Context, cmd domain.SendDirectCommand) (domain.Message, error)
	SendGroup(ctx context.Context, cmd domain.SendGroupCommand) (domain.Message, error)
	ListDirect(ctx context.Context, actorID, otherID string) ([]domain.Message, error)
	ListGroup(ctx context.Context, groupID uuid.UUID, actorID string) ([]domain.Message, error)
}

// DirectGate is the admission predicate as seen by message writes.
type DirectGate interface {
	CheckDirect(ctx context.Context, senderID, receiverID string) error
	Admit(tx *repositories.Tx, senderID, receiverID string) error
}

type MessageConfig struct {
	MaxContentLength int
	HistoryLimit     int // 0 returns whole conversations
}

// MessageService persists messages behind their gate, then hands them to the
// notifier. Persistence never depends on delivery.
type MessageService struct {
	store    *repositories.Store
	gate     DirectGate
	notifier contract.INotifier
	uploader contract.MediaUploader
	filter   contract.ContentFilter
	clock    clock.Clock
	log      *slog.Logger
	config   MessageConfig
}

// NewMessageService accepts a nil filter when moderation is disabled.
func NewMessageService(store *repositories.Store, gate DirectGate, notifier contract.INotifier,
	uploader contract.MediaUploader, filter contract.ContentFilter, clk clock.Clock,
	log *slog.Logger, config MessageConfig) *MessageService {
	return &MessageService{
		store:    store,
		gate:     gate,
		notifier: notifier,
		uploader: uploader,
		filter:   filter,
		clock:    clk,
		log:      log,
		config:   config,
	}
}

// SendDirect writes a direct message if the pair is admitted. The gate and the
// write commit together: a closed gate leaves no trace.
func (s *MessageService) SendDirect(ctx context.Context, cmd domain.SendDirectCommand) (domain.Message, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Message{}, err
	}
	if err := s.checkText(cmd.Text, cmd.Image, cmd.Video); err != nil {
		return domain.Message{}, err
	}
	// Attachments are only uploaded for a pair that may talk
	if len(cmd.Image) > 0 || len(cmd.Video) > 0 {
		if err := s.gate.CheckDirect(ctx, cmd.SenderID, cmd.ReceiverID); err != nil {
			return domain.Message{}, err
		}
	}

	content, err := s.content(ctx, cmd.Text, cmd.Image, cmd.Video)
	if err != nil {
		return domain.Message{}, err
	}
	msg, err := domain.NewDirectMessage(cmd.SenderID, cmd.ReceiverID, content, s.clock.Now())
	if err != nil {
		return domain.Message{}, err
	}

	err = retryOnConflict(func() error {
		return s.store.Update(func(tx *repositories.Tx) error {
			if err := s.gate.Admit(tx, cmd.SenderID, cmd.ReceiverID); err != nil {
				return err
			}
			return tx.PutMessage(msg)
		})
	})
	if err != nil {
		return domain.Message{}, s.fail("send direct message", err, "sender_id", cmd.SenderID)
	}

	s.notifier.NotifyUsers(event.NewDirectMessage{Message: msg}, cmd.ReceiverID)
	return msg, nil
}

// SendGroup writes a group message for a member and publishes it on the group
// channel, addressed to the members seen by the write.
// Soft deleted groups still accept messages.
func (s *MessageService) SendGroup(ctx context.Context, cmd domain.SendGroupCommand) (domain.Message, error) {
	if err := domain.Validate(cmd); err != nil {
		return domain.Message{}, err
	}
	if err := s.checkText(cmd.Text, cmd.Image, cmd.Video); err != nil {
		return domain.Message{}, err
	}
	if err := s.checkMember(cmd.GroupID, cmd.SenderID); err != nil {
		return domain.Message{}, err
	}

	content, err := s.content(ctx, cmd.Text, cmd.Image, cmd.Video)
	if err != nil {
		return domain.Message{}, err
	}
	msg, err := domain.NewGroupMessage(cmd.SenderID, cmd.GroupID, content, s.clock.Now())
	if err != nil {
		return domain.Message{}, err
	}

	var members []string
	err = retryOnConflict(func() error {
		return s.store.Update(func(tx *repositories.Tx) error {
			g, err := memberOf(tx, cmd.GroupID, cmd.SenderID)
			if err != nil {
				return err
			}
			members = g.Members
			return tx.PutMessage(msg)
		})
	})
	if err != nil {
		return domain.Message{}, s.fail("send group message", err, "group_id", cmd.GroupID)
	}

	s.notifier.NotifyChannel(cmd.GroupID, members, event.NewGroupMessage{Message: msg})
	return msg, nil
}

// ListDirect returns the conversation between the actor and otherID, oldest first.
func (s *MessageService) ListDirect(_ context.Context, actorID, otherID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.store.View(func(tx *repositories.Tx) error {
		var err error
		messages, err = tx.DirectMessages(actorID, otherID, s.config.HistoryLimit)
		return err
	})
	if err != nil {
		return nil, s.fail("list direct messages", err, "user_id", actorID)
	}
	return messages, nil
}

func (s *MessageService) ListGroup(_ context.Context, groupID uuid.UUID, actorID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.store.View(func(tx *repositories.Tx) error {
		if _, err := memberOf(tx, groupID, actorID); err != nil {
			return err
		}
		var err error
		messages, err = tx.GroupMessages(groupID, s.config.HistoryLimit)
		return err
	})
	if err != nil {
		return nil, s.fail("list group messages", err, "group_id", groupID)
	}
	return messages, nil
}

func (s *MessageService) checkText(text string, image, video []byte) error {
	if text == "" && len(image) == 0 && len(video) == 0 {
		return errors.ErrEmptyMessage
	}
	if s.config.MaxContentLength > 0 && utf8.RuneCountInString(text) > s.config.MaxContentLength {
		return errors.Validation(fmt.Sprintf("text exceeds %d characters", s.config.MaxContentLength))
	}
	return nil
}

func (s *MessageService) checkMember(groupID uuid.UUID, userID string) error {
	err := s.store.View(func(tx *repositories.Tx) error {
		_, err := memberOf(tx, groupID, userID)
		return err
	})
	if err != nil {
		return s.fail("check group membership", err, "group_id", groupID)
	}
	return nil
}

// content uploads the attachments and filters the text.
func (s *MessageService) content(ctx context.Context, text string, image, video []byte) (domain.Content, error) {
	content := domain.Content{Text: text}
	if s.filter != nil && text != "" {
		content.Text = s.filter.Sanitize(text)
	}
	var err error
	if len(image) > 0 {
		if content.ImageURL, err = s.uploader.Upload(ctx, image, domain.MediaImage); err != nil {
			return domain.Content{}, s.fail("upload image", err)
		}
	}
	if len(video) > 0 {
		if content.VideoURL, err = s.uploader.Upload(ctx, video, domain.MediaVideo); err != nil {
			return domain.Content{}, s.fail("upload video", err)
		}
	}
	return content, nil
}

// memberOf loads the group and checks userID belongs to it.
func memberOf(tx *repositories.Tx, groupID uuid.UUID, userID string) (domain.Group, error) {
	g, err := tx.GroupByID(groupID)
	if errors.Is(err, repositories.ErrNotFound) {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	if !g.IsMember(userID) {
		return domain.Group{}, errors.ErrNotMember
	}
	return g, nil
}

func (s *MessageService) fail(op string, err error, attrs ...any) error {
	return internalError(s.log, op, err, attrs...)
}
