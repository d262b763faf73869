package chat

import (
	"github.com/shoe-uugan/ai-chat/internal/models"
)

// Utterance is one role-tagged entry of the context replayed to the
// generation backend.
type Utterance struct {
	Role    models.Role
	Content string
}

// BuildContext assembles the ordered utterance sequence for a turn:
// the persona seed pair first, then every prior message verbatim and
// in order. The seed pair is what makes a stateless backend behave as
// if it remembers the persona. Pure function, no I/O.
//
// The sequence is never truncated or summarized here; context-window
// eviction is deliberately out of scope.
func BuildContext(character *models.Character, prior []models.Message) []Utterance {
	context := make([]Utterance, 0, len(prior)+2)

	context = append(context,
		Utterance{Role: models.RoleUser, Content: character.BasePrompt},
		Utterance{Role: models.RoleModel, Content: character.GreetingText},
	)

	for _, msg := range prior {
		context = append(context, Utterance{Role: msg.Role, Content: msg.Content})
	}

	return context
}
