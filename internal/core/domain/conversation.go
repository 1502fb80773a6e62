package domain

import "time"

// Role identifies the speaker of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationTurn is one message in a job's conversation.
// Order is implicit in the store.
type ConversationTurn struct {
	Role    Role
	Content string
}

// Citation points an answer back to a source file.
type Citation struct {
	FileName string
	FileID   string
	ChunkID  string
}

// Answer is the result of one chat turn.
type Answer struct {
	Text      string
	Citations []Citation

	// Degraded is true when a failure was turned into answer text.
	Degraded bool
}

// Identity is the caller behind a validated credential.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Session is created by a successful authentication.
type Session struct {
	ID        string
	Provider  string
	Identity  Identity
	CreatedAt time.Time
}

// CitationsFor derives citations from search results, in result order,
// keeping the first chunk seen for each file.
func CitationsFor(chunks []ScoredChunk) []Citation {
	seen := make(map[string]bool, len(chunks))
	citations := make([]Citation, 0, len(chunks))
	for _, sc := range chunks {
		if seen[sc.Chunk.FileID] {
			continue
		}
		seen[sc.Chunk.FileID] = true
		citations = append(citations, Citation{
			FileName: sc.Chunk.FileName,
			FileID:   sc.Chunk.FileID,
			ChunkID:  sc.Chunk.ID,
		})
	}
	return citations
}
