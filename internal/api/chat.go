package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/chat"
	"github.com/shoe-uugan/ai-chat/internal/models"
	apperrors "github.com/shoe-uugan/ai-chat/pkg/errors"
	"github.com/shoe-uugan/ai-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler exposes the two chat operations: post a turn, list the
// conversation history.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	characters   chat.CharacterDirectory
	logger       *logger.Logger
}

func NewChatHandler(orchestrator *chat.Orchestrator, characters chat.CharacterDirectory, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		characters:   characters,
		logger:       logger,
	}
}

// SendTurn handles POST /characters/:id/chat
func (h *ChatHandler) SendTurn(c *gin.Context) {
	characterID, ok := characterIDParam(c)
	if !ok {
		return
	}

	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Request body must contain non-empty content"))
		return
	}

	reply, err := h.orchestrator.HandleTurn(c.Request.Context(), characterID, userID, req.Content)
	if err != nil {
		c.Error(mapChatError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": reply})
}

// ListMessages handles GET /characters/:id/messages. The synthetic
// greeting is prepended here; it is never stored.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	characterID, ok := characterIDParam(c)
	if !ok {
		return
	}

	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	character, err := h.characters.GetCharacter(c.Request.Context(), characterID)
	if err != nil {
		c.Error(apperrors.NewNotFoundError("CHARACTER_NOT_FOUND", "Character not found"))
		return
	}

	messages, err := h.orchestrator.ListTurns(c.Request.Context(), characterID, userID)
	if err != nil {
		c.Error(mapChatError(err))
		return
	}

	withGreeting := c.DefaultQuery("greeting", "true") != "false"

	type messageResponse struct {
		ID        string      `json:"id"`
		Role      models.Role `json:"role"`
		Content   string      `json:"content"`
		CreatedAt time.Time   `json:"created_at"`
	}

	out := make([]messageResponse, 0, len(messages)+1)
	if withGreeting {
		out = append(out, messageResponse{
			ID:        "greeting",
			Role:      models.RoleModel,
			Content:   character.GreetingText,
			CreatedAt: character.CreatedAt,
		})
	}
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ExternalID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"character_id": characterID,
		"messages":     out,
		"count":        len(out),
	})
}

// mapChatError translates core chat errors onto the HTTP error surface
func mapChatError(err error) *apperrors.AppError {
	var genErr *chat.GenerationError
	var partialErr *chat.PartialTurnError
	var storageErr *chat.StorageError

	switch {
	case errors.Is(err, chat.ErrCharacterNotFound):
		return apperrors.NewNotFoundError("CHARACTER_NOT_FOUND", "Character not found")
	case errors.Is(err, chat.ErrEmptyMessage):
		return apperrors.NewBadRequestError("EMPTY_MESSAGE", "Message text must not be empty")
	case errors.As(err, &partialErr):
		// Distinct from a plain storage failure: the user turn was
		// recorded but the reply was not.
		return apperrors.NewServiceUnavailableError("PARTIAL_TURN",
			"Your message was recorded but the reply could not be saved. Please retry.")
	case errors.As(err, &genErr):
		switch genErr.Kind {
		case chat.GenerationTimeout:
			return apperrors.NewGatewayTimeoutError("GENERATION_TIMEOUT", "The character took too long to reply")
		case chat.GenerationRejected:
			return apperrors.NewBadRequestError("GENERATION_REJECTED", "The generation backend declined this input")
		default:
			return apperrors.NewServiceUnavailableError("GENERATION_UNAVAILABLE", "The generation backend is unavailable")
		}
	case errors.As(err, &storageErr):
		return apperrors.NewInternalServerError("STORAGE_ERROR", "Failed to access conversation storage")
	default:
		return apperrors.FromError(err)
	}
}

// authenticatedUserID pulls the verified user ID set by the JWT
// middleware. Requests lacking one are rejected.
func authenticatedUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userId")
	if !exists {
		c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return 0, false
	}
	userID, ok := v.(uint)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return 0, false
	}
	return userID, true
}
