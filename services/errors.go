package services

import (
	"chat-gate/errors"
	"chat-gate/repositories"
	"log/slog"
)

const maxTxnAttempts = 3

// retryOnConflict reruns fn while it loses optimistic races, up to maxTxnAttempts.
func retryOnConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if err = fn(); !errors.Is(err, repositories.ErrConflict) {
			return err
		}
	}
	return errors.ErrConcurrentUpdate
}

// internalError keeps service errors as they are and turns anything else into
// an internal error, logged here with its full cause.
func internalError(log *slog.Logger, op string, err error, attrs ...any) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e
	}
	log.Error(op+" failed", append([]any{"error", err}, attrs...)...)
	return errors.Internal(err)
}
