package chat

import (
	"errors"
	"fmt"

	"github.com/shoe-uugan/ai-chat/internal/models"
)

var (
	// ErrCharacterNotFound is returned when the requested character does not exist
	ErrCharacterNotFound = errors.New("character not found")
	// ErrEmptyMessage is returned when the user text is empty after trimming
	ErrEmptyMessage = errors.New("message text must not be empty")
)

// GenerationErrorKind classifies generation backend failures
type GenerationErrorKind string

const (
	// GenerationUnavailable covers network and backend failures
	GenerationUnavailable GenerationErrorKind = "unavailable"
	// GenerationRejected means the backend declined the input, e.g. policy filtering
	GenerationRejected GenerationErrorKind = "rejected"
	// GenerationTimeout means the bounded call deadline expired
	GenerationTimeout GenerationErrorKind = "timeout"
)

// GenerationError is a failure of the generation backend. It is never
// retried by the chat core; retry policy belongs to the caller.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generation %s", e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StorageError is a message store read or write failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PartialTurnError reports the one persisted inconsistency the core
// can leave behind: the user message of a turn was written but the
// model reply write failed. The caller can distinguish this from
// "nothing happened" and repair or surface a retriable error. The
// already-generated reply is carried along so it is not lost.
type PartialTurnError struct {
	UserMessage *models.Message
	Reply       string
	Err         error
}

func (e *PartialTurnError) Error() string {
	return fmt.Sprintf("turn partially persisted: user message %d recorded, reply write failed: %v",
		e.UserMessage.ID, e.Err)
}

func (e *PartialTurnError) Unwrap() error { return e.Err }
