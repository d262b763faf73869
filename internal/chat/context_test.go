package chat

import (
	"testing"

	"github.com/shoe-uugan/ai-chat/internal/models"

	"github.com/stretchr/testify/assert"
)

func pirate() *models.Character {
	return &models.Character{
		ID:           1,
		Name:         "Captain Flint",
		BasePrompt:   "You are a pirate.",
		GreetingText: "Arr, welcome!",
	}
}

func TestBuildContextEmptyHistory(t *testing.T) {
	got := BuildContext(pirate(), nil)

	assert.Equal(t, []Utterance{
		{Role: models.RoleUser, Content: "You are a pirate."},
		{Role: models.RoleModel, Content: "Arr, welcome!"},
	}, got)
}

func TestBuildContextReplaysHistoryInOrder(t *testing.T) {
	prior := []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleModel, Content: "Ahoy there!"},
		{Role: models.RoleUser, Content: "Where is the treasure?"},
		{Role: models.RoleModel, Content: "That be a secret."},
	}

	got := BuildContext(pirate(), prior)

	assert.Len(t, got, 6)
	assert.Equal(t, Utterance{Role: models.RoleUser, Content: "You are a pirate."}, got[0])
	assert.Equal(t, Utterance{Role: models.RoleModel, Content: "Arr, welcome!"}, got[1])
	for i, msg := range prior {
		assert.Equal(t, Utterance{Role: msg.Role, Content: msg.Content}, got[i+2])
	}
}

func TestBuildContextIsDeterministic(t *testing.T) {
	prior := []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleModel, Content: "Ahoy there!"},
	}

	first := BuildContext(pirate(), prior)
	second := BuildContext(pirate(), prior)

	assert.Equal(t, first, second)
}

func TestBuildContextDoesNotMutateInputs(t *testing.T) {
	character := pirate()
	prior := []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
	}

	_ = BuildContext(character, prior)

	assert.Equal(t, "You are a pirate.", character.BasePrompt)
	assert.Equal(t, "Hello", prior[0].Content)
}
