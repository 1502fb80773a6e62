package http

import (
	"context"
	"sync"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

type mockIndexService struct {
	mu       sync.Mutex
	job      *domain.Job
	err      error
	jobs     map[string]*domain.Job
	requests []driving.IndexRequest
}

func (m *mockIndexService) Index(_ context.Context, req driving.IndexRequest) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.job, m.err
}

func (m *mockIndexService) Status(_ context.Context, jobID string) (*domain.Job, error) {
	if job, ok := m.jobs[jobID]; ok {
		return job, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockIndexService) Jobs(_ context.Context) ([]*domain.Job, error) {
	var out []*domain.Job
	for _, id := range []string{"job-1", "job-2"} {
		if job, ok := m.jobs[id]; ok {
			out = append(out, job)
		}
	}
	return out, nil
}

type mockChatService struct {
	mu       sync.Mutex
	answer   *domain.Answer
	err      error
	history  map[string][]domain.ConversationTurn
	messages []string
	cleared  []string
}

func (m *mockChatService) Chat(_ context.Context, jobID, message string) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.history[jobID]; !ok {
		return nil, domain.ErrNotFound
	}
	return m.answer, nil
}

func (m *mockChatService) History(_ context.Context, jobID string) ([]domain.ConversationTurn, error) {
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

type mockAuthService struct {
	session      *domain.Session
	authErr      error
	authorizeErr error
	creds        []driving.Credentials
	providers    []string
}

func (m *mockAuthService) Authenticate(_ context.Context, provider, _, _ string) (*domain.Session, error) {
	m.providers = append(m.providers, provider)
	if m.authErr != nil {
		return nil, m.authErr
	}
	return m.session, nil
}

func (m *mockAuthService) Authorize(_ context.Context, creds driving.Credentials) (*domain.Identity, error) {
	m.creds = append(m.creds, creds)
	if m.authorizeErr != nil {
		return nil, m.authorizeErr
	}
	return &domain.Identity{Subject: "user-1"}, nil
}
