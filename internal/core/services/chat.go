package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
	"github.com/custodia-labs/foldertalk/internal/logger"
	"github.com/custodia-labs/foldertalk/internal/metrics"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// ChatConfig tunes retrieval.
type ChatConfig struct {
	TopK int
}

// ChatService runs the query path for a job. Turns on one job are
// serialised; different jobs proceed in parallel.
type ChatService struct {
	stores   Stores
	embedder driven.EmbeddingService
	answers  *AnswerGenerator
	cfg      ChatConfig
	locks    *keyedMutex
}

// NewChatService creates a new chat service.
func NewChatService(
	stores Stores,
	embedder driven.EmbeddingService,
	answers *AnswerGenerator,
	cfg ChatConfig,
) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &ChatService{
		stores:   stores,
		embedder: embedder,
		answers:  answers,
		cfg:      cfg,
		locks:    newKeyedMutex(),
	}
}

// Chat answers a message against a job's chunks and records the exchange.
func (s *ChatService) Chat(ctx context.Context, jobID, message string) (*domain.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if _, err := s.stores.Jobs.Get(ctx, jobID); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}

	unlock := s.locks.Lock(jobID)
	defer unlock()

	history, err := s.stores.Conversations.History(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	answer, err := s.answer(ctx, jobID, message, history)
	if err != nil {
		return nil, err
	}

	if err := s.stores.Conversations.Append(ctx, jobID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: message}); err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}
	if err := s.stores.Conversations.Append(ctx, jobID,
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer.Text}); err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	metrics.ChatAnswered(answer.Degraded)
	return answer, nil
}

func (s *ChatService) answer(
	ctx context.Context,
	jobID, message string,
	history []domain.ConversationTurn,
) (*domain.Answer, error) {
	query, err := s.embedder.Embed(ctx, message)
	if err != nil {
		logger.Warn("Job %s: embedding question failed: %v", jobID, err)
		return &domain.Answer{Text: QueryFailedAnswer, Citations: []domain.Citation{}, Degraded: true}, nil
	}

	hits, err := s.stores.Index.Search(ctx, jobID, query, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search job %s: %w", jobID, err)
	}
	logger.Debug("Job %s: %d chunks retrieved", jobID, len(hits))

	return s.answers.Generate(ctx, message, hits, history), nil
}

// History returns a job's retained conversation.
func (s *ChatService) History(ctx context.Context, jobID string) ([]domain.ConversationTurn, error) {
	if _, err := s.stores.Jobs.Get(ctx, jobID); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return s.stores.Conversations.History(ctx, jobID)
}

// ClearHistory empties a job's conversation.
func (s *ChatService) ClearHistory(ctx context.Context, jobID string) error {
	if _, err := s.stores.Jobs.Get(ctx, jobID); err != nil {
		return fmt.Errorf("get job %s: %w", jobID, err)
	}

	unlock := s.locks.Lock(jobID)
	defer unlock()
	return s.stores.Conversations.Clear(ctx, jobID)
}
