package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failures an operation can report to its caller.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAuthorization:
		return "AUTHORIZATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "INTERNAL"
	}
}

// Error is the error variant returned by every service operation.
// Meta carries the authoritative state a caller needs to reconcile a conflict
// (e.g. the current status of a request).
type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches two *Error values of the same kind and message, so sentinels
// survive being decorated with metadata through WithMeta.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithMeta returns a copy of e carrying the given key/value pairs.
func (e *Error) WithMeta(kv ...string) *Error {
	meta := make(map[string]string, len(e.Meta)+len(kv)/2)
	for k, v := range e.Meta {
		meta[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	return &Error{Kind: e.Kind, Message: e.Message, Meta: meta, Cause: e.Cause}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func Forbidden(msg string) *Error { return New(KindAuthorization, msg) }
func NotFound(msg string) *Error { return New(KindNotFound, msg) }
func Conflict(msg string) *Error { return New(KindConflict, msg) }
func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }

// Internal wraps an infrastructure failure. The cause is kept for logging and
// never rendered to the caller.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal error", cause)
}

// KindOf reports the kind of err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is re-exported so callers importing this package under the name errors
// keep access to the standard helpers.
func As(err error, target any) bool { return errors.As(err, target) }

func Is(err, target error) bool { return errors.Is(err, target) }

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrSelfRequest        = Validation("cannot send request to yourself")
	ErrInvalidRequestID   = Validation("invalid request id")
	ErrInvalidGroupID     = Validation("invalid group id")
	ErrGroupNameRequired  = Validation("group name is required")
	ErrEmptyMessage       = Validation("message must carry text, image or video")
	ErrMessageShape       = Validation("message must have exactly one of receiver or group")
	ErrEmptySearch        = Validation("email query is required")
	ErrCannotRemoveAdmin  = Validation("cannot remove group admin")
	ErrAdminCannotLeave   = Validation("admin cannot leave, delete the group instead")
	ErrUnsupportedMedia   = Validation("unsupported media payload")
	ErrUserNotFound       = NotFound("user not found")
	ErrRequestNotFound    = NotFound("request not found")
	ErrGroupNotFound      = NotFound("group not found")
	ErrOnlyRecipient      = Forbidden("only the recipient can answer this request")
	ErrOnlyRequester      = Forbidden("only the requester can cancel this request")
	ErrOnlyAdmin          = Forbidden("only the group admin can do this")
	ErrNotMember          = Forbidden("you are not a member of this group")
	ErrRequestNotSent     = Forbidden("chat request not sent")
	ErrRequestNotAccepted = Forbidden("chat request not accepted")
	ErrConversationExists = Conflict("conversation already exists")
	ErrRequestNotPending  = Conflict("request is not pending")
	ErrRequestBlocked     = Conflict("request is blocked")
	ErrEmailTaken         = Conflict("email is already used by another user")
	ErrConcurrentUpdate   = Conflict("concurrent update, please retry")
	ErrMissingToken       = Unauthenticated("authorization token is missing")
	ErrInvalidToken       = Unauthenticated("invalid or expired token")
)
