package models

import (
	"time"
)

// Role tags who produced a message. It is a closed two-value type so
// malformed role strings can never enter the store.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Message is one persisted utterance of a conversation. Messages are
// append-only and strictly ordered per (character, user) pair by
// CreatedAt; the store assigns the timestamp.
type Message struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ExternalID  string    `json:"external_id" gorm:"index"`
	CharacterID uint      `json:"character_id" gorm:"index:idx_messages_pair,priority:1"`
	UserID      uint      `json:"user_id" gorm:"index:idx_messages_pair,priority:2"`
	Role        Role      `json:"role" gorm:"type:varchar(8);not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
