package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/pkg/logger"
	"github.com/shoe-uugan/ai-chat/pkg/resilience"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator produces one reply for a context plus a new user
// utterance. Implementations are stateless between calls: each call is
// a fresh session built from the full context.
type Generator interface {
	Generate(ctx context.Context, conversation []Utterance, userText string) (string, error)
}

// GeminiClient is the Generator backed by the Google Gemini API. Every
// call builds a fresh chat session from the replayed context; nothing
// is retained between calls and nothing is persisted here.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// GeminiConfig configures the Gemini generation client
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed generator
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log *logger.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash-latest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultConfig("gemini"), log),
		log:     log,
	}, nil
}

// Close releases the underlying API client
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate sends the context and the new user utterance to Gemini and
// returns the single reply. The call carries a bounded timeout. All
// failures are classified and never retried here.
func (c *GeminiClient) Generate(ctx context.Context, conversation []Utterance, userText string) (string, error) {
	if err := validateGenerationInput(conversation, userText); err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(conversation))
	for _, u := range conversation {
		contents = append(contents, &genai.Content{
			Role:  string(u.Role),
			Parts: []genai.Part{genai.Text(u.Content)},
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reply string
	err := c.breaker.Execute(func() error {
		model := c.client.GenerativeModel(c.model)
		session := model.StartChat()
		session.History = contents

		resp, err := session.SendMessage(callCtx, genai.Text(userText))
		if err != nil {
			return err
		}

		text, err := extractReply(resp)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return "", c.classify(err, callCtx)
	}

	return reply, nil
}

// validateGenerationInput enforces the call contract: a non-empty,
// role-alternating context starting with user, and non-empty user text.
func validateGenerationInput(conversation []Utterance, userText string) error {
	if strings.TrimSpace(userText) == "" {
		return &GenerationError{Kind: GenerationRejected, Err: errors.New("empty user utterance")}
	}
	if len(conversation) == 0 {
		return &GenerationError{Kind: GenerationRejected, Err: errors.New("empty context")}
	}

	want := models.RoleUser
	for i, u := range conversation {
		if u.Role != want {
			return &GenerationError{
				Kind: GenerationRejected,
				Err:  fmt.Errorf("context not role-alternating at index %d: got %q, want %q", i, u.Role, want),
			}
		}
		if want == models.RoleUser {
			want = models.RoleModel
		} else {
			want = models.RoleUser
		}
	}

	return nil
}

var errEmptyCandidates = errors.New("response contained no candidates")

func extractReply(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyCandidates
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	if sb.Len() == 0 {
		return "", errEmptyCandidates
	}

	return sb.String(), nil
}

// classify maps transport errors onto the generation failure taxonomy
func (c *GeminiClient) classify(err error, callCtx context.Context) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded:
		return &GenerationError{Kind: GenerationTimeout, Err: err}
	case errors.Is(err, errEmptyCandidates):
		// The backend declined to produce content, e.g. safety filtering
		return &GenerationError{Kind: GenerationRejected, Err: err}
	default:
		return &GenerationError{Kind: GenerationUnavailable, Err: err}
	}
}
