package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/internal/service"
	"github.com/shoe-uugan/ai-chat/pkg/config"
	"github.com/shoe-uugan/ai-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CharacterHandler exposes the character directory: reads for everyone
// authenticated, writes for admins.
type CharacterHandler struct {
	service *service.CharacterService
	logger  *logger.Logger
}

func NewCharacterHandler(service *service.CharacterService, logger *logger.Logger) *CharacterHandler {
	return &CharacterHandler{service: service, logger: logger}
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	var req models.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if url, ok := h.storeAvatar(c, req.AvatarURL); ok {
		req.AvatarURL = url
	} else {
		return
	}

	character, err := h.service.CreateCharacter(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Error creating character", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create character"})
		return
	}

	c.JSON(http.StatusCreated, character)
}

func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	characters, err := h.service.ListCharacters(c.Request.Context())
	if err != nil {
		h.logger.Error("Error listing characters", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list characters"})
		return
	}

	c.JSON(http.StatusOK, characters)
}

func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	id, ok := characterIDParam(c)
	if !ok {
		return
	}

	character, err := h.service.GetCharacter(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
			return
		}
		h.logger.Error("Error fetching character", "character_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch character"})
		return
	}

	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	id, ok := characterIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if url, ok := h.storeAvatar(c, req.AvatarURL); ok {
		req.AvatarURL = url
	} else {
		return
	}

	character, err := h.service.UpdateCharacter(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
			return
		}
		h.logger.Error("Error updating character", "character_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update character"})
		return
	}

	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id, ok := characterIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCharacter(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
			return
		}
		h.logger.Error("Error deleting character", "character_id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete character"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Character deleted"})
}

// storeAvatar decodes a data-URL avatar to a file under the uploads
// dir and returns its URL. Plain URLs pass through untouched. The
// second return value is false when a response has already been
// written.
func (h *CharacterHandler) storeAvatar(c *gin.Context, avatar string) (string, bool) {
	if !strings.HasPrefix(avatar, "data:") {
		return avatar, true
	}

	commaIndex := strings.Index(avatar, ",")
	if commaIndex == -1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid avatar data URL"})
		return "", false
	}

	imageData, err := base64.StdEncoding.DecodeString(avatar[commaIndex+1:])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid base64 image data"})
		return "", false
	}

	dir := config.Get().Uploads.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.logger.Error("Error creating uploads directory", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
		return "", false
	}

	filename := fmt.Sprintf("%d.png", time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, filename), imageData, 0644); err != nil {
		h.logger.Error("Error writing avatar file", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store avatar"})
		return "", false
	}

	return "/" + dir + "/" + filename, true
}

func characterIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid character ID"})
		return 0, false
	}
	return uint(id), true
}
