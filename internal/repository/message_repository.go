package repository

import (
	"context"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStore is the append-only, per-(character, user) ordered log
// of dialogue turns. Append assigns the creation timestamp, strictly
// increasing per pair so a subsequent ListByPair reproduces the exact
// write order. The store never updates or deletes messages.
type MessageStore interface {
	ListByPair(ctx context.Context, characterID, userID uint) ([]models.Message, error)
	Append(ctx context.Context, characterID, userID uint, role models.Role, content string) (*models.Message, error)
}

// GormMessageStore is the PostgreSQL-backed message store
type GormMessageStore struct {
	db *gorm.DB
}

func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

// ListByPair returns all messages for the pair, ascending by creation
// time. Pairs are fully isolated: both IDs take part in the filter.
func (r *GormMessageStore) ListByPair(ctx context.Context, characterID, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// Append persists one message. The timestamp is clamped above the
// pair's latest existing message so ordering survives coarse clocks;
// the caller is expected to hold the pair's serialization lock.
func (r *GormMessageStore) Append(ctx context.Context, characterID, userID uint, role models.Role, content string) (*models.Message, error) {
	now := time.Now()

	var last models.Message
	err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return nil, err
	}
	if last.ID != 0 && !now.After(last.CreatedAt) {
		now = last.CreatedAt.Add(time.Microsecond)
	}

	message := &models.Message{
		ExternalID:  uuid.New().String(),
		CharacterID: characterID,
		UserID:      userID,
		Role:        role,
		Content:     content,
		CreatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}

	return message, nil
}
