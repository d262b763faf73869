package chat

import (
	"testing"

	"github.com/shoe-uugan/ai-chat/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedContext() []Utterance {
	return []Utterance{
		{Role: models.RoleUser, Content: "You are a pirate."},
		{Role: models.RoleModel, Content: "Arr, welcome!"},
	}
}

func TestValidateGenerationInput(t *testing.T) {
	tests := []struct {
		name         string
		conversation []Utterance
		userText     string
		wantErr      bool
	}{
		{
			name:         "valid seed pair",
			conversation: seedContext(),
			userText:     "Hello",
		},
		{
			name: "valid longer context",
			conversation: append(seedContext(),
				Utterance{Role: models.RoleUser, Content: "Hello"},
				Utterance{Role: models.RoleModel, Content: "Ahoy there!"},
			),
			userText: "Where is the treasure?",
		},
		{
			name:         "empty user text",
			conversation: seedContext(),
			userText:     "   ",
			wantErr:      true,
		},
		{
			name:         "empty context",
			conversation: nil,
			userText:     "Hello",
			wantErr:      true,
		},
		{
			name: "context starting with model",
			conversation: []Utterance{
				{Role: models.RoleModel, Content: "Arr, welcome!"},
			},
			userText: "Hello",
			wantErr:  true,
		},
		{
			name: "consecutive user utterances",
			conversation: append(seedContext(),
				Utterance{Role: models.RoleUser, Content: "Hello"},
				Utterance{Role: models.RoleUser, Content: "Anyone there?"},
			),
			userText: "Hello",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGenerationInput(tt.conversation, tt.userText)
			if tt.wantErr {
				var ge *GenerationError
				require.ErrorAs(t, err, &ge)
				assert.Equal(t, GenerationRejected, ge.Kind)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtractReply(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  "model",
					Parts: []genai.Part{genai.Text("Ahoy "), genai.Text("there!")},
				},
			},
		},
	}

	text, err := extractReply(resp)
	require.NoError(t, err)
	assert.Equal(t, "Ahoy there!", text)
}

func TestExtractReplyEmptyCandidates(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model"}}}},
	} {
		_, err := extractReply(resp)
		assert.ErrorIs(t, err, errEmptyCandidates)
	}
}
