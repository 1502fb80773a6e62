package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

type chatFixture struct {
	stores   Stores
	embedder *mockEmbedder
	llm      *mockLLM
	svc      *ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		stores:   newStores(),
		embedder: &mockEmbedder{},
		llm:      &mockLLM{reply: "The budget is in a.txt."},
	}
	f.svc = NewChatService(f.stores, f.embedder, NewAnswerGenerator(f.llm, AnswerConfig{}), ChatConfig{TopK: 2})

	ctx := context.Background()
	require.NoError(t, f.stores.Jobs.Save(ctx, domain.NewJob("job", "folder", time.Now())))
	require.NoError(t, f.stores.Index.Add(ctx, "job", []domain.Chunk{
		{ID: "a_0", FileID: "a", FileName: "a.txt", Content: "alpha budget", Embedding: []float32{1, 0, 0, 0.01}},
		{ID: "b_0", FileID: "b", FileName: "b.txt", Content: "beta notes", Embedding: []float32{0, 1, 0, 0.01}},
		{ID: "a_1", FileID: "a", FileName: "a.txt", Content: "alpha beta", Embedding: []float32{1, 1, 0, 0.01}},
		{ID: "c_0", FileID: "c", FileName: "c.txt", Content: "gamma", Embedding: []float32{0, 0, 1, 0.01}},
	}))
	return f
}

func TestNewChatService_DefaultTopK(t *testing.T) {
	svc := NewChatService(newStores(), nil, nil, ChatConfig{})
	assert.Equal(t, DefaultTopK, svc.cfg.TopK)
}

func TestChatService_Chat(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	answer, err := f.svc.Chat(ctx, "job", "  where is the alpha budget?  ")
	require.NoError(t, err)

	assert.Equal(t, "The budget is in a.txt.", answer.Text)
	assert.False(t, answer.Degraded)
	// Top 2 for "alpha": a_0 then a_1, both from a.txt.
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, domain.Citation{FileName: "a.txt", FileID: "a", ChunkID: "a_0"}, answer.Citations[0])

	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, driven.ChatRoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "a.txt: alpha budget\n\na.txt: alpha beta")
	assert.NotContains(t, prompt[0].Content, "gamma")
	assert.Equal(t, driven.ChatMessage{Role: driven.ChatRoleUser, Content: "where is the alpha budget?"}, prompt[1])

	history, err := f.svc.History(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "where is the alpha budget?"},
		{Role: domain.RoleAssistant, Content: "The budget is in a.txt."},
	}, history)
}

func TestChatService_Chat_SendsHistory(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, "job", "alpha first")
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, "job", "beta second")
	require.NoError(t, err)

	prompt := f.llm.lastPrompt()
	require.Len(t, prompt, 4)
	assert.Equal(t, "alpha first", prompt[1].Content)
	assert.Equal(t, driven.ChatRoleUser, prompt[1].Role)
	assert.Equal(t, driven.ChatRoleAssistant, prompt[2].Role)
	assert.Equal(t, "beta second", prompt[3].Content)
}

func TestChatService_Chat_Errors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Chat(ctx, "job", " \n ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Zero(t, f.llm.calls())
}

func TestChatService_Chat_NoRelevantChunks(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, f.stores.Jobs.Save(ctx, domain.NewJob("empty", "folder", time.Now())))

	answer, err := f.svc.Chat(ctx, "empty", "anything?")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformationAnswer, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.False(t, answer.Degraded)
	assert.Zero(t, f.llm.calls())

	history, err := f.svc.History(ctx, "empty")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestChatService_Chat_QueryEmbeddingFails(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.fail = func(string) bool { return true }

	answer, err := f.svc.Chat(context.Background(), "job", "alpha?")
	require.NoError(t, err)
	assert.True(t, answer.Degraded)
	assert.Equal(t, QueryFailedAnswer, answer.Text)
	assert.NotNil(t, answer.Citations)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, f.llm.calls())
}

func TestChatService_Chat_GenerationFails(t *testing.T) {
	f := newChatFixture(t)
	f.llm.err = errors.New("model overloaded")

	answer, err := f.svc.Chat(context.Background(), "job", "alpha?")
	require.NoError(t, err)
	assert.True(t, answer.Degraded)
	assert.Equal(t, GenerationFailedAnswer+"model overloaded", answer.Text)
	assert.Empty(t, answer.Citations)

	history, err := f.svc.History(context.Background(), "job")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, answer.Text, history[1].Content)
}

func TestChatService_Chat_SerialisedPerJob(t *testing.T) {
	f := newChatFixture(t)
	f.llm.delay = 10 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Chat(ctx, "job", fmt.Sprintf("alpha %d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.llm.maxIn)
	assert.Equal(t, 0, f.svc.locks.size())

	history, err := f.svc.History(ctx, "job")
	require.NoError(t, err)
	require.Len(t, history, 10)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Role)
		assert.Equal(t, domain.RoleAssistant, history[i+1].Role)
	}
}

func TestChatService_History(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := f.svc.History(ctx, "job")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestChatService_ClearHistory(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ClearHistory(ctx, "missing"), domain.ErrNotFound)

	_, err := f.svc.Chat(ctx, "job", "alpha?")
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearHistory(ctx, "job"))
	require.NoError(t, f.svc.ClearHistory(ctx, "job"))

	history, err := f.svc.History(ctx, "job")
	require.NoError(t, err)
	assert.Empty(t, history)
}
