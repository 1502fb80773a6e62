package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// DefaultWindow is the number of turns kept per job.
const DefaultWindow = 20

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore keeps the most recent turns of each job's conversation.
type ConversationStore struct {
	mu     sync.Mutex
	window int
	turns  map[string][]domain.ConversationTurn
}

// NewConversationStore creates a store retaining window turns per job.
// A non-positive window uses DefaultWindow.
func NewConversationStore(window int) *ConversationStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ConversationStore{
		window: window,
		turns:  make(map[string][]domain.ConversationTurn),
	}
}

// Append adds a turn and drops the oldest turns beyond the window.
func (s *ConversationStore) Append(_ context.Context, jobID string, turn domain.ConversationTurn) error {
	if !turn.Role.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[jobID], turn)
	if over := len(turns) - s.window; over > 0 {
		turns = append([]domain.ConversationTurn(nil), turns[over:]...)
	}
	s.turns[jobID] = turns
	return nil
}

// History returns a copy of a job's turns, oldest first.
func (s *ConversationStore) History(_ context.Context, jobID string) ([]domain.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConversationTurn{}, s.turns[jobID]...), nil
}

// Clear forgets a job's conversation.
func (s *ConversationStore) Clear(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, jobID)
	return nil
}
