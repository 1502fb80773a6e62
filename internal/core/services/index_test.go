package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
)

func indexReq() driving.IndexRequest {
	return driving.IndexRequest{AccessToken: "token", FolderURL: testFolderURL}
}

func TestNewIndexService_Defaults(t *testing.T) {
	svc := NewIndexService(nil, nil, nil, nil, newStores(), IndexConfig{MaxJobs: -3})
	assert.Equal(t, 1, svc.cfg.FileWorkers)
	assert.Equal(t, 1, svc.cfg.EmbedWorkers)
	assert.Equal(t, 0, svc.cfg.MaxJobs)
}

func TestIndexService_Index_Completes(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.
		add("f1", "a.txt", domain.MIMETypePlainText, "alpha alpha one two three four five six").
		add("img", "photo.png", "image/png", "binary").
		add("f2", "b.csv", domain.MIMETypeCSV, "beta beta beta")
	ctx := context.Background()

	job, err := f.svc.Index(ctx, indexReq())
	require.NoError(t, err)

	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, "folder-1", job.FolderID)
	assert.Equal(t, "Reports", job.FolderName)
	require.Len(t, job.Files, 2, "unsupported types are not part of the job")
	assert.Equal(t, "a.txt", job.Files[0].Name)
	assert.Equal(t, "b.csv", job.Files[1].Name)
	assert.Equal(t, 3, job.ChunkCount)
	assert.Equal(t, 3, job.EmbeddedCount)
	assert.Empty(t, job.FileFailures)
	assert.False(t, job.FinishedAt.IsZero())

	stored, err := f.svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, stored.Status)

	total, embedded, err := f.stores.Index.Stats(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, embedded)

	hits, err := f.stores.Index.Search(ctx, job.ID, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "f2_0", hits[0].Chunk.ID)
	assert.Equal(t, "b.csv", hits[0].Chunk.FileName)
	assert.Equal(t, job.ID, hits[0].Chunk.JobID)
}

func TestIndexService_Index_InvalidFolderURL(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})

	_, err := f.svc.Index(context.Background(), driving.IndexRequest{AccessToken: "token", FolderURL: "https://example.com/x"})
	assert.ErrorIs(t, err, domain.ErrInvalidFolderURL)

	jobs, err := f.svc.Jobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestIndexService_Index_MissingToken(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})

	_, err := f.svc.Index(context.Background(), driving.IndexRequest{FolderURL: testFolderURL})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	jobs, err := f.svc.Jobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs, "no job is created before the source opens")
}

func TestIndexService_Index_FolderAccessFails(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*mockSource)
		wantErr error
	}{
		{
			name:    "lookup fails with plain error",
			setup:   func(s *mockSource) { s.folderErr = errors.New("404 not found") },
			wantErr: domain.ErrSourceAccess,
		},
		{
			name:    "listing fails",
			setup:   func(s *mockSource) { s.listErr = fmt.Errorf("%w: quota", domain.ErrSourceAccess) },
			wantErr: domain.ErrSourceAccess,
		},
		{
			name:    "token rejected by the source",
			setup:   func(s *mockSource) { s.folderErr = fmt.Errorf("%w: expired", domain.ErrAuthInvalid) },
			wantErr: domain.ErrAuthInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIndexFixture(t, IndexConfig{})
			tt.setup(f.source)

			job, err := f.svc.Index(context.Background(), indexReq())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, job, "the failed job is returned with the error")
			assert.Equal(t, domain.JobFailed, job.Status)
			assert.NotEmpty(t, job.Error)

			stored, err := f.svc.Status(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.JobFailed, stored.Status)
		})
	}
}

func TestIndexService_Index_NoSupportedFiles(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.add("img", "photo.png", "image/png", "binary")

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, ReasonNoSupportedFiles, job.Error)
	assert.Empty(t, job.Files)
	assert.Zero(t, f.embedder.callCount())
}

func TestIndexService_Index_NoTextExtracted(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.
		add("f1", "empty.txt", domain.MIMETypePlainText, "   ").
		add("f2", "doc.doc", domain.MIMETypeMSWord, "")

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, ReasonNoText, job.Error)
	require.Len(t, job.FileFailures, 2)
	assert.Equal(t, "f1", job.FileFailures[0].FileID)
	assert.Equal(t, "empty.txt", job.FileFailures[0].FileName)
	assert.Contains(t, job.FileFailures[0].Reason, "no text")
}

func TestIndexService_Index_NoChunksEmbedded(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.add("f1", "a.txt", domain.MIMETypePlainText, "alpha beta gamma")
	f.embedder.fail = func(string) bool { return true }

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, job.Status)
	assert.Equal(t, ReasonNoEmbeddings, job.Error)
	assert.Equal(t, 1, job.ChunkCount)

	total, embedded, err := f.stores.Index.Stats(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "unembedded chunks are kept")
	assert.Zero(t, embedded)
}

func TestIndexService_Index_PartialFailuresAreAbsorbed(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.
		add("f1", "a.txt", domain.MIMETypePlainText, "alpha one two three four five six seven").
		add("f2", "b.txt", domain.MIMETypePlainText, "beta").
		add("f3", "c.txt", domain.MIMETypePlainText, "gamma")
	f.source.fetchErr["f2"] = fmt.Errorf("%w: 500", domain.ErrSourceAccess)
	f.embedder.fail = func(text string) bool { return strings.Contains(text, "seven") }

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 3, job.ChunkCount)
	assert.Equal(t, 2, job.EmbeddedCount)
	require.Len(t, job.FileFailures, 1)
	assert.Equal(t, "b.txt", job.FileFailures[0].FileName)
	assert.Contains(t, job.FileFailures[0].Reason, "fetch")
}

func TestIndexService_Index_DimensionMismatchIsAChunkFailure(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.
		add("f1", "a.txt", domain.MIMETypePlainText, "alpha").
		add("f2", "b.txt", domain.MIMETypePlainText, "odd")
	f.embedder.override = func(text string) []float32 {
		if text == "odd" {
			return []float32{1, 2}
		}
		return nil
	}

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.Equal(t, 2, job.ChunkCount)
	assert.Equal(t, 1, job.EmbeddedCount)
}

func TestIndexService_Index_ConcurrentWorkersKeepFileOrder(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{FileWorkers: 4, EmbedWorkers: 3})
	for i := 0; i < 12; i++ {
		content := strings.Repeat(fmt.Sprintf("alpha word%d ", i), 6)
		if i%3 == 0 {
			content = ""
		}
		f.source.add(fmt.Sprintf("f%02d", i), fmt.Sprintf("file%02d.txt", i), domain.MIMETypePlainText, content)
	}

	job, err := f.svc.Index(context.Background(), indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)

	require.Len(t, job.FileFailures, 4)
	for i, failure := range job.FileFailures {
		assert.Equal(t, fmt.Sprintf("f%02d", i*3), failure.FileID)
	}

	// 12 words per file, windows of 5 advancing by 4: 3 chunks each.
	assert.Equal(t, 8*3, job.ChunkCount)
	assert.Equal(t, 8*3, job.EmbeddedCount)
	assert.Equal(t, 8*3, f.embedder.callCount())
}

func TestIndexService_Index_SurvivesCallerCancellation(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.add("f1", "a.txt", domain.MIMETypePlainText, "alpha beta")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := f.svc.Index(ctx, indexReq())
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
}

func TestIndexService_Index_Async(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	f.source.add("f1", "a.txt", domain.MIMETypePlainText, "alpha beta")

	req := indexReq()
	req.Async = true
	job, err := f.svc.Index(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Len(t, job.Files, 1)

	f.svc.Wait()

	done, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, done.Status)
	assert.Equal(t, 1, done.ChunkCount)
}

func TestIndexService_Status_NotFound(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{})
	_, err := f.svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_Retention(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{MaxJobs: 2})
	f.source.add("f1", "a.txt", domain.MIMETypePlainText, "alpha beta")
	ctx := context.Background()

	first, err := f.svc.Index(ctx, indexReq())
	require.NoError(t, err)
	require.NoError(t, f.stores.Conversations.Append(ctx, first.ID,
		domain.ConversationTurn{Role: domain.RoleUser, Content: "hello"}))

	// A pending job is never evicted and does not count.
	pending := domain.NewJob("pending", "folder-1", first.CreatedAt)
	require.NoError(t, f.stores.Jobs.Save(ctx, pending))

	_, err = f.svc.Index(ctx, indexReq())
	require.NoError(t, err)
	third, err := f.svc.Index(ctx, indexReq())
	require.NoError(t, err)

	_, err = f.svc.Status(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	total, _, err := f.stores.Index.Stats(ctx, first.ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	turns, err := f.stores.Conversations.History(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	jobs, err := f.svc.Jobs(ctx)
	require.NoError(t, err)
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	assert.ElementsMatch(t, []string{"pending", "job-2", third.ID}, ids)
}

func TestIndexService_Retention_Disabled(t *testing.T) {
	f := newIndexFixture(t, IndexConfig{MaxJobs: 0})
	f.source.add("f1", "a.txt", domain.MIMETypePlainText, "alpha")

	for i := 0; i < 4; i++ {
		_, err := f.svc.Index(context.Background(), indexReq())
		require.NoError(t, err)
	}

	jobs, err := f.svc.Jobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}

func TestDimensionTracker(t *testing.T) {
	var d dimensionTracker
	assert.False(t, d.accept(0))
	assert.True(t, d.accept(3))
	assert.True(t, d.accept(3))
	assert.False(t, d.accept(2))
	assert.Equal(t, 3, d.get())
}
