package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shoe-uugan/ai-chat/internal/models"
	"github.com/shoe-uugan/ai-chat/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryStore is an in-memory MessageStore. failAppendAt makes the
// Nth append fail (1-based), to exercise partial write handling.
type memoryStore struct {
	mu           sync.Mutex
	messages     []models.Message
	nextID       uint
	appendCalls  int
	failAppendAt int
	listErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) ListByPair(ctx context.Context, characterID, userID uint) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Message
	for _, m := range s.messages {
		if m.CharacterID == characterID && m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) Append(ctx context.Context, characterID, userID uint, role models.Role, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.failAppendAt != 0 && s.appendCalls == s.failAppendAt {
		return nil, errors.New("disk full")
	}
	s.nextID++
	msg := models.Message{
		ID:          s.nextID,
		CharacterID: characterID,
		UserID:      userID,
		Role:        role,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

// stubDirectory serves a fixed set of characters
type stubDirectory struct {
	characters map[uint]*models.Character
}

func (d *stubDirectory) GetCharacter(ctx context.Context, id uint) (*models.Character, error) {
	c, ok := d.characters[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

// stubGenerator delegates to a function so tests can observe the
// conversation passed in and control the reply
type stubGenerator struct {
	fn func(ctx context.Context, conversation []Utterance, userText string) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, conversation []Utterance, userText string) (string, error) {
	return g.fn(ctx, conversation, userText)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

func newTestOrchestrator(store *memoryStore, gen *stubGenerator) *Orchestrator {
	dir := &stubDirectory{characters: map[uint]*models.Character{
		1: pirate(),
	}}
	return NewOrchestrator(dir, store, gen, testLogger())
}

func TestHandleTurnPersistsUserThenModel(t *testing.T) {
	store := newMemoryStore()
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		return "Ahoy there!", nil
	}}
	o := newTestOrchestrator(store, gen)

	reply, err := o.HandleTurn(context.Background(), 1, 42, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Ahoy there!", reply)

	messages, err := store.ListByPair(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, models.RoleModel, messages[1].Role)
	assert.Equal(t, "Ahoy there!", messages[1].Content)
}

func TestHandleTurnSecondTurnSeesFullContext(t *testing.T) {
	store := newMemoryStore()
	var seen []Utterance
	replies := []string{"Ahoy there!", "That be a secret."}
	turn := 0
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		seen = conversation
		reply := replies[turn]
		turn++
		return reply, nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")
	require.NoError(t, err)

	_, err = o.HandleTurn(context.Background(), 1, 42, "Where is the treasure?")
	require.NoError(t, err)

	// Second turn's context: seed pair plus the full first exchange
	require.Len(t, seen, 4)
	assert.Equal(t, Utterance{Role: models.RoleUser, Content: "You are a pirate."}, seen[0])
	assert.Equal(t, Utterance{Role: models.RoleModel, Content: "Arr, welcome!"}, seen[1])
	assert.Equal(t, Utterance{Role: models.RoleUser, Content: "Hello"}, seen[2])
	assert.Equal(t, Utterance{Role: models.RoleModel, Content: "Ahoy there!"}, seen[3])
}

func TestHandleTurnUnknownCharacter(t *testing.T) {
	store := newMemoryStore()
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		t.Fatal("generator must not be called for an unknown character")
		return "", nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 99, 42, "Hello")
	assert.ErrorIs(t, err, ErrCharacterNotFound)
	assert.Empty(t, store.messages)
}

func TestHandleTurnEmptyMessage(t *testing.T) {
	store := newMemoryStore()
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		t.Fatal("generator must not be called for empty input")
		return "", nil
	}}
	o := newTestOrchestrator(store, gen)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := o.HandleTurn(context.Background(), 1, 42, text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, store.messages)
}

func TestHandleTurnGenerationFailureWritesNothing(t *testing.T) {
	store := newMemoryStore()
	genErr := &GenerationError{Kind: GenerationUnavailable, Err: errors.New("backend down")}
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		return "", genErr
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, GenerationUnavailable, ge.Kind)
	assert.Empty(t, store.messages, "a failed generation must leave the store untouched")
	assert.Equal(t, 0, store.appendCalls)
}

func TestHandleTurnGenerationFailureIsNotRetried(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		calls++
		return "", &GenerationError{Kind: GenerationTimeout, Err: context.DeadlineExceeded}
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHandleTurnPartialWrite(t *testing.T) {
	store := newMemoryStore()
	store.failAppendAt = 2 // user write succeeds, model write fails
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		return "Ahoy there!", nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")

	var pe *PartialTurnError
	require.ErrorAs(t, err, &pe)
	require.NotNil(t, pe.UserMessage)
	assert.Equal(t, "Hello", pe.UserMessage.Content)
	assert.Equal(t, "Ahoy there!", pe.Reply, "the generated reply must not be lost")

	messages, listErr := store.ListByPair(context.Background(), 1, 42)
	require.NoError(t, listErr)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
}

func TestHandleTurnUserWriteFailure(t *testing.T) {
	store := newMemoryStore()
	store.failAppendAt = 1
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		return "Ahoy there!", nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")

	var se *StorageError
	require.ErrorAs(t, err, &se)
	var pe *PartialTurnError
	assert.False(t, errors.As(err, &pe), "a failed user write is not a partial turn")
	assert.Empty(t, store.messages)
}

func TestHandleTurnSerializesSamePair(t *testing.T) {
	store := newMemoryStore()
	var mu sync.Mutex
	active := 0
	maxActive := 0
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return "reply to " + userText, nil
	}}
	o := newTestOrchestrator(store, gen)

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := o.HandleTurn(context.Background(), 1, 42, fmt.Sprintf("message %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "turns for the same pair must never overlap")

	messages, err := store.ListByPair(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Len(t, messages, 2*turns)
	// Every user message is immediately followed by its reply
	for i := 0; i < len(messages); i += 2 {
		assert.Equal(t, models.RoleUser, messages[i].Role)
		assert.Equal(t, models.RoleModel, messages[i+1].Role)
		assert.Equal(t, "reply to "+messages[i].Content, messages[i+1].Content)
	}
}

func TestHandleTurnDifferentPairsRunInParallel(t *testing.T) {
	store := newMemoryStore()
	dir := &stubDirectory{characters: map[uint]*models.Character{
		1: pirate(),
		2: {ID: 2, Name: "Oracle", BasePrompt: "You are an oracle.", GreetingText: "Speak."},
	}}

	release := make(chan struct{})
	firstIn := make(chan struct{})
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		if userText == "slow" {
			close(firstIn)
			<-release
		}
		return "done", nil
	}}
	o := NewOrchestrator(dir, store, gen, testLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := o.HandleTurn(context.Background(), 1, 42, "slow")
		assert.NoError(t, err)
	}()

	<-firstIn

	// A turn for another pair completes while the first is blocked
	done := make(chan struct{})
	go func() {
		_, err := o.HandleTurn(context.Background(), 2, 42, "fast")
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("turn for an unrelated pair was blocked")
	}

	close(release)
	wg.Wait()
}

func TestHandleTurnPairIsolation(t *testing.T) {
	store := newMemoryStore()
	var contexts [][]Utterance
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		contexts = append(contexts, conversation)
		return "ok", nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "from user A")
	require.NoError(t, err)

	_, err = o.HandleTurn(context.Background(), 1, 43, "from user B")
	require.NoError(t, err)

	// User B's context contains only the seed pair, none of A's history
	require.Len(t, contexts, 2)
	assert.Len(t, contexts[1], 2)
}

func TestListTurns(t *testing.T) {
	store := newMemoryStore()
	gen := &stubGenerator{fn: func(ctx context.Context, conversation []Utterance, userText string) (string, error) {
		return "Ahoy there!", nil
	}}
	o := newTestOrchestrator(store, gen)

	_, err := o.HandleTurn(context.Background(), 1, 42, "Hello")
	require.NoError(t, err)

	messages, err := o.ListTurns(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hello", messages[0].Content)

	// Unrelated pair reads back empty
	other, err := o.ListTurns(context.Background(), 1, 43)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListTurnsStorageError(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("connection reset")
	o := newTestOrchestrator(store, &stubGenerator{})

	_, err := o.ListTurns(context.Background(), 1, 42)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list messages", se.Op)
}
