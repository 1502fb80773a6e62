package driving

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// ChatService answers questions against an indexed job.
type ChatService interface {
	// Chat answers a message using the job's chunks and conversation.
	// Returns domain.ErrNotFound for an unknown job.
	Chat(ctx context.Context, jobID, message string) (*domain.Answer, error)

	// History returns the job's retained conversation, oldest first.
	History(ctx context.Context, jobID string) ([]domain.ConversationTurn, error)

	// ClearHistory empties the job's conversation. Idempotent.
	ClearHistory(ctx context.Context, jobID string) error
}
