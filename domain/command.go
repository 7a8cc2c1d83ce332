package domain

import (
	"chat-gate/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Media payloads are raw bytes; the uploader turns them into URLs.
type SendDirectCommand struct {
	SenderID   string `validate:"required"`
	ReceiverID string `validate:"required,nefield=SenderID"`
	Text       string
	Image      []byte
	Video      []byte
}

type SendGroupCommand struct {
	SenderID string    `validate:"required"`
	GroupID  uuid.UUID `validate:"required"`
	Text     string
	Image    []byte
	Video    []byte
}

type CreateGroupCommand struct {
	AdminID     string   `validate:"required"`
	Name        string   `validate:"required,max=100"`
	Description string   `validate:"max=500"`
	MemberIDs   []string `validate:"dive,required"`
	Picture     []byte
}

type UpdateGroupCommand struct {
	GroupID     uuid.UUID `validate:"required"`
	ActorID     string    `validate:"required"`
	Name        *string   `validate:"omitempty,max=100"`
	Description *string   `validate:"omitempty,max=500"`
	Picture     []byte
}

type UpsertProfileCommand struct {
	UserID     string `validate:"required"`
	Email      string `validate:"required,email"`
	FullName   string `validate:"required,max=100"`
	ProfilePic string `validate:"omitempty,url"`
}

// Validate runs the struct tags of cmd and turns the first failure into a
// validation error naming the field.
func Validate(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return errors.Validation(fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return errors.Validation(err.Error())
}
