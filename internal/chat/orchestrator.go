package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/internal/repository"
	"github.com/shoe-uugan/ai-chat/pkg/logger"
	"github.com/shoe-uugan/ai-chat/pkg/observability"

	"gorm.io/gorm"
)

// CharacterDirectory is the read-only view of character records the
// orchestrator needs. The admin CRUD surface lives elsewhere.
type CharacterDirectory interface {
	GetCharacter(ctx context.Context, id uint) (*models.Character, error)
}

// Orchestrator drives one chat turn end to end: load the character,
// replay history into a context, call the generation backend, persist
// the user/model pair. All turns for the same (character, user) pair
// are serialized; different pairs run in parallel.
type Orchestrator struct {
	characters CharacterDirectory
	store      repository.MessageStore
	generator  Generator
	locks      *pairLocks
	log        *logger.Logger
	metrics    *observability.ChatMetrics
}

// NewOrchestrator creates a turn orchestrator
func NewOrchestrator(characters CharacterDirectory, store repository.MessageStore, generator Generator, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		characters: characters,
		store:      store,
		generator:  generator,
		locks:      newPairLocks(),
		log:        log,
	}
}

// WithMetrics attaches chat turn instruments
func (o *Orchestrator) WithMetrics(m *observability.ChatMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// HandleTurn processes one exchange: the user's text in, the
// character's generated reply out. On success exactly two messages
// have been persisted, user then model. On generation failure nothing
// is persisted. If the model write fails after the user write
// succeeded, a PartialTurnError carries the recorded user message and
// the already-generated reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, characterID, userID uint, userText string) (string, error) {
	start := time.Now()

	key := pairKey{characterID: characterID, userID: userID}
	o.locks.lock(key)
	defer o.locks.unlock(key)

	character, err := o.characters.GetCharacter(ctx, characterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			o.fail(ctx, "character_not_found")
			return "", ErrCharacterNotFound
		}
		o.fail(ctx, "storage")
		return "", &StorageError{Op: "load character", Err: err}
	}

	userText = strings.TrimSpace(userText)
	if userText == "" {
		o.fail(ctx, "empty_input")
		return "", ErrEmptyMessage
	}

	prior, err := o.store.ListByPair(ctx, characterID, userID)
	if err != nil {
		o.fail(ctx, "storage")
		return "", &StorageError{Op: "list messages", Err: err}
	}

	conversation := BuildContext(character, prior)

	reply, err := o.generator.Generate(ctx, conversation, userText)
	if err != nil {
		// Surfaced unchanged; no writes have happened, so the store is
		// exactly as it was before the call.
		o.fail(ctx, "generation")
		return "", err
	}

	userMsg, err := o.store.Append(ctx, characterID, userID, models.RoleUser, userText)
	if err != nil {
		o.fail(ctx, "storage")
		return "", &StorageError{Op: "append user message", Err: err}
	}

	if _, err := o.store.Append(ctx, characterID, userID, models.RoleModel, reply); err != nil {
		// The conversation now holds an unanswered user turn. Report it
		// distinctly so the caller can tell this apart from "nothing
		// happened" and repair with the reply still in hand.
		o.log.Error("model message write failed after user message was recorded",
			"character_id", characterID,
			"user_id", userID,
			"user_message_id", userMsg.ID,
			"error", err.Error(),
		)
		o.fail(ctx, "partial_turn")
		return "", &PartialTurnError{UserMessage: userMsg, Reply: reply, Err: err}
	}

	o.metrics.RecordTurn(ctx, time.Since(start))

	return reply, nil
}

// ListTurns returns the persisted messages for a pair, ascending by
// creation time. The synthetic greeting is not stored; the
// caller-facing read path prepends it.
func (o *Orchestrator) ListTurns(ctx context.Context, characterID, userID uint) ([]models.Message, error) {
	messages, err := o.store.ListByPair(ctx, characterID, userID)
	if err != nil {
		return nil, &StorageError{Op: "list messages", Err: err}
	}
	return messages, nil
}

func (o *Orchestrator) fail(ctx context.Context, reason string) {
	o.metrics.RecordFailure(ctx, reason)
}
