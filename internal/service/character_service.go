package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/pkg/cache"
	"github.com/shoe-uugan/ai-chat/pkg/logger"

	"gorm.io/gorm"
)

// CharacterService manages character records. The chat core only reads
// from it; creates, edits and deletes belong to the admin surface.
// Reads go through a Redis cache that admin writes invalidate.
type CharacterService struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *logger.Logger
}

func NewCharacterService(db *gorm.DB, c *cache.Cache, log *logger.Logger) *CharacterService {
	return &CharacterService{
		db:    db,
		cache: c,
		log:   log,
	}
}

func characterCacheKey(id uint) string {
	return fmt.Sprintf("character:%d", id)
}

func (s *CharacterService) CreateCharacter(ctx context.Context, req *models.CreateCharacterRequest) (*models.Character, error) {
	character := &models.Character{
		Name:         req.Name,
		Description:  req.Description,
		BasePrompt:   req.BasePrompt,
		GreetingText: req.GreetingText,
		AvatarURL:    req.AvatarURL,
	}

	if err := s.db.WithContext(ctx).Create(character).Error; err != nil {
		return nil, err
	}

	return character, nil
}

// GetCharacter loads a character by ID, cache first
func (s *CharacterService) GetCharacter(ctx context.Context, id uint) (*models.Character, error) {
	var cached models.Character
	if err := s.cache.Get(ctx, characterCacheKey(id), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("character cache read failed", "character_id", id, "error", err.Error())
	}

	var character models.Character
	if err := s.db.WithContext(ctx).First(&character, id).Error; err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, characterCacheKey(id), &character); err != nil {
		s.log.Warn("character cache write failed", "character_id", id, "error", err.Error())
	}

	return &character, nil
}

func (s *CharacterService) ListCharacters(ctx context.Context) ([]models.Character, error) {
	var characters []models.Character
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}

// UpdateCharacter applies an admin edit. Past messages generated under
// the previous persona are left untouched.
func (s *CharacterService) UpdateCharacter(ctx context.Context, id uint, req *models.UpdateCharacterRequest) (*models.Character, error) {
	var character models.Character
	if err := s.db.WithContext(ctx).First(&character, id).Error; err != nil {
		return nil, err
	}

	if req.Name != "" {
		character.Name = req.Name
	}
	if req.Description != "" {
		character.Description = req.Description
	}
	if req.BasePrompt != "" {
		character.BasePrompt = req.BasePrompt
	}
	if req.GreetingText != "" {
		character.GreetingText = req.GreetingText
	}
	if req.AvatarURL != "" {
		character.AvatarURL = req.AvatarURL
	}

	if err := s.db.WithContext(ctx).Save(&character).Error; err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, characterCacheKey(id)); err != nil {
		s.log.Warn("character cache invalidation failed", "character_id", id, "error", err.Error())
	}

	return &character, nil
}

func (s *CharacterService) DeleteCharacter(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Character{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	if err := s.cache.Delete(ctx, characterCacheKey(id)); err != nil {
		s.log.Warn("character cache invalidation failed", "character_id", id, "error", err.Error())
	}

	return nil
}
