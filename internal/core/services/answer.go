package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// NoRelevantInformationAnswer is returned without calling the model when
// retrieval found nothing.
const NoRelevantInformationAnswer = "I couldn't find any relevant information in the indexed files to answer that question."

// Degraded answers returned instead of errors.
const (
	GenerationFailedAnswer = "Sorry, I couldn't generate an answer right now because the language model failed: "
	QueryFailedAnswer      = "Sorry, I couldn't search the indexed files right now because the question could not be embedded. Please try again."
)

// DefaultHistoryTurns is how many earlier turns are sent with a question.
const DefaultHistoryTurns = 9

const systemInstruction = `You are a helpful assistant answering questions about the files in a shared folder.
Answer using only the context below. If the context does not contain the answer, say so.
Mention the file names you relied on.

Context:
`

// AnswerConfig tunes answer generation.
type AnswerConfig struct {
	// HistoryTurns caps the earlier turns included in the prompt (default 9).
	HistoryTurns int

	MaxTokens   int
	Temperature float64
}

// AnswerGenerator turns retrieved chunks, history and a question into an
// answer with citations. It never returns an error.
type AnswerGenerator struct {
	llm driven.LLMService
	cfg AnswerConfig
}

// NewAnswerGenerator creates a new answer generator.
func NewAnswerGenerator(llm driven.LLMService, cfg AnswerConfig) *AnswerGenerator {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	return &AnswerGenerator{llm: llm, cfg: cfg}
}

// Generate answers query. chunks must be in search order; history excludes
// the query itself.
func (g *AnswerGenerator) Generate(
	ctx context.Context,
	query string,
	chunks []domain.ScoredChunk,
	history []domain.ConversationTurn,
) *domain.Answer {
	if len(chunks) == 0 {
		return &domain.Answer{Text: NoRelevantInformationAnswer, Citations: []domain.Citation{}}
	}

	temperature := g.cfg.Temperature
	text, err := g.llm.Chat(ctx, g.Messages(query, chunks, history), driven.ChatOptions{
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		logger.Warn("Answer generation failed: %v", err)
		return &domain.Answer{
			Text:      GenerationFailedAnswer + err.Error(),
			Citations: []domain.Citation{},
			Degraded:  true,
		}
	}

	return &domain.Answer{Text: text, Citations: domain.CitationsFor(chunks)}
}

// Messages builds the prompt: one system message carrying the context, the
// most recent history turns, then the query.
func (g *AnswerGenerator) Messages(
	query string,
	chunks []domain.ScoredChunk,
	history []domain.ConversationTurn,
) []driven.ChatMessage {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Chunk.FileName)
		sb.WriteString(": ")
		sb.WriteString(c.Chunk.Content)
	}

	if len(history) > g.cfg.HistoryTurns {
		history = history[len(history)-g.cfg.HistoryTurns:]
	}

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: driven.ChatRoleSystem, Content: sb.String()})
	for _, turn := range history {
		messages = append(messages, driven.ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: driven.ChatRoleUser, Content: query})
	return messages
}
