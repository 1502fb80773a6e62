package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	job      *domain.Job
	jobs     []*domain.Job
	err      error
	requests []driving.IndexRequest
}

func (m *mockIndexService) Index(_ context.Context, req driving.IndexRequest) (*domain.Job, error) {
	m.requests = append(m.requests, req)
	return m.job, m.err
}

func (m *mockIndexService) Status(_ context.Context, jobID string) (*domain.Job, error) {
	for _, job := range m.jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIndexService) Jobs(_ context.Context) ([]*domain.Job, error) {
	return m.jobs, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer  *domain.Answer
	err     error
	history map[string][]domain.ConversationTurn
	cleared []string
}

func (m *mockChatService) Chat(_ context.Context, _, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockChatService) History(_ context.Context, jobID string) ([]domain.ConversationTurn, error) {
	if m.err != nil {
		return nil, m.err
	}
	turns, ok := m.history[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return turns, nil
}

func (m *mockChatService) ClearHistory(_ context.Context, jobID string) error {
	if _, ok := m.history[jobID]; !ok {
		return domain.ErrNotFound
	}
	m.cleared = append(m.cleared, jobID)
	return nil
}

func newTestServer(t *testing.T, index *mockIndexService, chat *mockChatService) *Server {
	t.Helper()
	s, err := NewServer(&Ports{Index: index, Chat: chat}, "test")
	require.NoError(t, err)
	return s
}
