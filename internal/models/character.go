package models

import (
	"time"
)

// Character is a fixed AI persona: the base prompt seeds every
// conversation context and the greeting opens it.
type Character struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description" gorm:"not null"`
	AvatarURL    string    `json:"avatar_url"`
	BasePrompt   string    `json:"base_prompt" gorm:"type:text;not null"`
	GreetingText string    `json:"greeting_text" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCharacterRequest is the request structure for creating a character
type CreateCharacterRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	BasePrompt   string `json:"base_prompt" binding:"required"`
	GreetingText string `json:"greeting_text" binding:"required"`
	AvatarURL    string `json:"avatar_url"`
}

// UpdateCharacterRequest is the request structure for editing a character.
// Empty fields are left untouched. Edits never rewrite messages already
// generated under the previous persona.
type UpdateCharacterRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	BasePrompt   string `json:"base_prompt"`
	GreetingText string `json:"greeting_text"`
	AvatarURL    string `json:"avatar_url"`
}
