package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

func TestJobStore(t *testing.T) {
	storagetest.JobStore(t, NewJobStore())
}

func TestDocumentIndex(t *testing.T) {
	storagetest.DocumentIndex(t, NewDocumentIndex())
}

func TestConversationStore(t *testing.T) {
	storagetest.ConversationStore(t, NewConversationStore(4))
}

func TestSessionStore(t *testing.T) {
	storagetest.SessionStore(t, NewSessionStore())
}

func TestNewConversationStore_DefaultWindow(t *testing.T) {
	store := NewConversationStore(0)
	ctx := context.Background()
	for i := 0; i < DefaultWindow+5; i++ {
		require.NoError(t, store.Append(ctx, "j", domain.ConversationTurn{Role: domain.RoleUser, Content: "m"}))
	}
	turns, err := store.History(ctx, "j")
	require.NoError(t, err)
	assert.Len(t, turns, DefaultWindow)
}

func TestDocumentIndex_CopiesEmbeddings(t *testing.T) {
	idx := NewDocumentIndex()
	emb := []float32{1, 0}
	require.NoError(t, idx.Add(context.Background(), "j", []domain.Chunk{{ID: "f_0", FileID: "f", Content: "x", Embedding: emb}}))

	emb[0] = 0
	hits, err := idx.Search(context.Background(), "j", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}
