// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// JobStore exercises a driven.JobStore.
func JobStore(t *testing.T, store driven.JobStore) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save and get round trip", func(t *testing.T) {
		job := domain.NewJob("job-1", "folder-1", base)
		job.FolderName = "Reports"
		job.Files = []domain.FileDescriptor{
			{ID: "f1", Name: "a.txt", MIMEType: domain.MIMETypePlainText, Size: 10},
		}
		require.NoError(t, store.Save(ctx, job))

		got, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobPending, got.Status)
		assert.Equal(t, "Reports", got.FolderName)
		require.Len(t, got.Files, 1)
		assert.Equal(t, "a.txt", got.Files[0].Name)
		assert.True(t, base.Equal(got.CreatedAt))

		// Mutating the returned copy must not leak into the store.
		got.Files[0].Name = "changed"
		again, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, "a.txt", again.Files[0].Name)
	})

	t.Run("save replaces", func(t *testing.T) {
		job, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		job.FileFailures = []domain.FileFailure{{FileID: "f1", FileName: "a.txt", Reason: "no text"}}
		require.NoError(t, job.Complete(4, 3, base.Add(time.Minute)))
		require.NoError(t, store.Save(ctx, job))

		got, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobCompleted, got.Status)
		assert.Equal(t, 4, got.ChunkCount)
		assert.Equal(t, 3, got.EmbeddedCount)
		assert.Equal(t, job.FileFailures, got.FileFailures)
		assert.True(t, base.Add(time.Minute).Equal(got.FinishedAt))
	})

	t.Run("list oldest first", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewJob("job-3", "f", base.Add(2*time.Hour))))
		require.NoError(t, store.Save(ctx, domain.NewJob("job-2", "f", base.Add(time.Hour))))

		jobs, err := store.List(ctx)
		require.NoError(t, err)
		ids := make([]string, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		assert.Equal(t, []string{"job-1", "job-2", "job-3"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "job-2"))
		require.NoError(t, store.Delete(ctx, "job-2"))
		_, err := store.Get(ctx, "job-2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func chunk(jobID, fileID string, seq int, emb []float32) domain.Chunk {
	return domain.Chunk{
		ID:        fmt.Sprintf("%s_%d", fileID, seq),
		JobID:     jobID,
		FileID:    fileID,
		FileName:  fileID + ".txt",
		MIMEType:  domain.MIMETypePlainText,
		Sequence:  seq,
		Content:   fmt.Sprintf("content %s %d", fileID, seq),
		Embedding: emb,
	}
}

// DocumentIndex exercises a driven.DocumentIndex.
func DocumentIndex(t *testing.T, idx driven.DocumentIndex) {
	ctx := context.Background()

	t.Run("unknown job is empty", func(t *testing.T) {
		hits, err := idx.Search(ctx, "nope", []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)

		total, embedded, err := idx.Stats(ctx, "nope")
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Zero(t, embedded)
	})

	require.NoError(t, idx.Add(ctx, "job-a", []domain.Chunk{
		chunk("job-a", "f1", 0, []float32{1, 0, 0}),
		chunk("job-a", "f1", 1, []float32{0, 1, 0}),
		chunk("job-a", "f2", 0, nil),
		chunk("job-a", "f2", 1, []float32{1, 0, 0}),
		chunk("job-a", "f3", 0, []float32{0.7, 0.7, 0}),
	}))
	require.NoError(t, idx.Add(ctx, "job-b", []domain.Chunk{
		chunk("job-b", "g1", 0, []float32{1, 0}),
	}))

	t.Run("ranks by similarity with stable ties", func(t *testing.T) {
		hits, err := idx.Search(ctx, "job-a", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 4, "unembedded chunk is never returned")

		assert.Equal(t, "f1_0", hits[0].Chunk.ID)
		assert.Equal(t, "f2_1", hits[1].Chunk.ID)
		assert.Equal(t, "f3_0", hits[2].Chunk.ID)
		assert.Equal(t, "f1_1", hits[3].Chunk.ID)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
		assert.InDelta(t, 0.0, hits[3].Similarity, 1e-6)

		assert.Equal(t, "f1.txt", hits[0].Chunk.FileName)
		assert.Equal(t, 0, hits[0].Chunk.Sequence)
		assert.Equal(t, "content f1 0", hits[0].Chunk.Content)
		assert.Equal(t, "job-a", hits[0].Chunk.JobID)
	})

	t.Run("respects k", func(t *testing.T) {
		hits, err := idx.Search(ctx, "job-a", []float32{0, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "f1_1", hits[0].Chunk.ID)

		none, err := idx.Search(ctx, "job-a", []float32{0, 1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("jobs are isolated", func(t *testing.T) {
		hits, err := idx.Search(ctx, "job-b", []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "g1_0", hits[0].Chunk.ID)
	})

	t.Run("stats", func(t *testing.T) {
		total, embedded, err := idx.Stats(ctx, "job-a")
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Equal(t, 4, embedded)
	})

	t.Run("rejects dimension mismatch", func(t *testing.T) {
		err := idx.Add(ctx, "job-a", []domain.Chunk{
			chunk("job-a", "f4", 0, []float32{1, 0, 0}),
			chunk("job-a", "f4", 1, []float32{1, 0}),
		})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		total, _, err := idx.Stats(ctx, "job-a")
		require.NoError(t, err)
		assert.Equal(t, 5, total, "a rejected batch adds nothing")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, idx.Delete(ctx, "job-a"))
		hits, err := idx.Search(ctx, "job-a", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)

		// A deleted job may be rebuilt with a different dimension.
		require.NoError(t, idx.Add(ctx, "job-a", []domain.Chunk{chunk("job-a", "f1", 0, []float32{1, 0})}))
	})
}

// ConversationStore exercises a driven.ConversationStore created with a
// window of four turns.
func ConversationStore(t *testing.T, store driven.ConversationStore) {
	ctx := context.Background()

	t.Run("unknown job has empty history", func(t *testing.T) {
		turns, err := store.History(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("keeps order and evicts oldest", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			role := domain.RoleUser
			if i%2 == 1 {
				role = domain.RoleAssistant
			}
			require.NoError(t, store.Append(ctx, "job", domain.ConversationTurn{Role: role, Content: fmt.Sprint(i)}))
		}

		turns, err := store.History(ctx, "job")
		require.NoError(t, err)
		require.Len(t, turns, 4)
		assert.Equal(t, "2", turns[0].Content)
		assert.Equal(t, domain.RoleUser, turns[0].Role)
		assert.Equal(t, "5", turns[3].Content)
		assert.Equal(t, domain.RoleAssistant, turns[3].Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		err := store.Append(ctx, "job", domain.ConversationTurn{Role: "system", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("jobs are isolated", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "other", domain.ConversationTurn{Role: domain.RoleUser, Content: "hi"}))
		turns, err := store.History(ctx, "other")
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, "job"))
		require.NoError(t, store.Clear(ctx, "job"))
		require.NoError(t, store.Clear(ctx, "never-seen"))

		turns, err := store.History(ctx, "job")
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

// SessionStore exercises a driven.SessionStore.
func SessionStore(t *testing.T, store driven.SessionStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, &domain.Session{
		ID:        "s1",
		Provider:  "google",
		Identity:  domain.Identity{Subject: "sub", Email: "ana@example.com", Name: "Ana"},
		CreatedAt: created,
	}))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "google", got.Provider)
	assert.Equal(t, "ana@example.com", got.Identity.Email)
	assert.True(t, created.Equal(got.CreatedAt))

	assert.ErrorIs(t, store.Save(ctx, &domain.Session{}), domain.ErrInvalidInput)
}
