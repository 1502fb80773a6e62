package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driving"
	"github.com/custodia-labs/foldertalk/internal/logger"
	"github.com/custodia-labs/foldertalk/internal/metrics"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Failure reasons recorded on jobs.
const (
	ReasonNoSupportedFiles = "no supported files found in folder"
	ReasonNoText           = "no text could be extracted from any file"
	ReasonNoEmbeddings     = "no chunks could be embedded"
)

// DefaultMaxJobs is the number of finished jobs kept before the oldest are evicted.
const DefaultMaxJobs = 50

// Stores groups the stores shared by the index and chat services.
type Stores struct {
	Jobs          driven.JobStore
	Index         driven.DocumentIndex
	Conversations driven.ConversationStore
}

// IndexConfig tunes job processing.
type IndexConfig struct {
	// FileWorkers is how many files are processed at once (default 1).
	FileWorkers int

	// EmbedWorkers is how many chunks of one file are embedded at once (default 1).
	EmbedWorkers int

	// MaxJobs caps the number of finished jobs kept. Zero disables eviction.
	MaxJobs int
}

// IndexService creates jobs and runs the write path: fetch, extract, chunk,
// embed and index.
type IndexService struct {
	sources   driven.FileSourceFactory
	extractor driven.TextExtractor
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	stores    Stores
	cfg       IndexConfig

	now   func() time.Time
	newID func() string

	// background tracks async jobs.
	background sync.WaitGroup
	// retention serialises eviction passes.
	retention sync.Mutex
}

// NewIndexService creates a new index service.
func NewIndexService(
	sources driven.FileSourceFactory,
	extractor driven.TextExtractor,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	stores Stores,
	cfg IndexConfig,
) *IndexService {
	if cfg.FileWorkers <= 0 {
		cfg.FileWorkers = 1
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = 1
	}
	if cfg.MaxJobs < 0 {
		cfg.MaxJobs = 0
	}
	return &IndexService{
		sources:   sources,
		extractor: extractor,
		pipeline:  pipeline,
		embedder:  embedder,
		stores:    stores,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Index creates a job for the folder and processes it.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IndexService) Index(ctx context.Context, req driving.IndexRequest) (*domain.Job, error) {
	// 1. Resolve the folder id
	folderID, err := domain.ParseFolderURL(req.FolderURL)
	if err != nil {
		return nil, err
	}

	// 2. Open the caller's file source
	source, err := s.sources.ForToken(ctx, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("open file source: %w", err)
	}

	job := domain.NewJob(s.newID(), folderID, s.now())
	if err := s.stores.Jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	logger.Info("Created job %s for folder %s", job.ID, folderID)

	// 3. Look the folder up and list what can be indexed
	folder, err := source.Folder(ctx, folderID)
	if err != nil {
		return s.failAccess(ctx, job, "look up folder", err)
	}
	job.FolderName = folder.Name

	listed, err := source.ListFiles(ctx, folderID)
	if err != nil {
		return s.failAccess(ctx, job, "list files", err)
	}
	for _, f := range listed {
		if f.IsIndexable() {
			job.Files = append(job.Files, f)
		} else {
			logger.Debug("Skipping %s (%s): type not supported", f.Name, f.MIMEType)
		}
	}

	if len(job.Files) == 0 {
		_ = job.Fail(ReasonNoSupportedFiles, s.now())
		return s.finish(ctx, job)
	}
	if err := s.stores.Jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	// 4. Process. A disconnecting caller must not abort the job.
	work := context.WithoutCancel(ctx)
	if req.Async {
		pending := job.Clone()
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if _, err := s.process(work, job, source); err != nil {
				logger.Error("Job %s: %v", job.ID, err)
			}
		}()
		return pending, nil
	}
	return s.process(work, job, source)
}

// Status returns a job by ID.
func (s *IndexService) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.stores.Jobs.Get(ctx, jobID)
}

// Jobs lists known jobs, oldest first.
func (s *IndexService) Jobs(ctx context.Context) ([]*domain.Job, error) {
	return s.stores.Jobs.List(ctx)
}

// Wait blocks until every async job has finished.
func (s *IndexService) Wait() {
	s.background.Wait()
}

// failAccess fails a job whose folder could not be read. The returned error
// always matches domain.ErrSourceAccess unless the token itself was rejected.
func (s *IndexService) failAccess(ctx context.Context, job *domain.Job, step string, cause error) (*domain.Job, error) {
	if !errors.Is(cause, domain.ErrSourceAccess) && !errors.Is(cause, domain.ErrAuthInvalid) {
		cause = fmt.Errorf("%w: %w", domain.ErrSourceAccess, cause)
	}
	_ = job.Fail(cause.Error(), s.now())
	done, err := s.finish(ctx, job)
	if err != nil {
		return done, err
	}
	return done, fmt.Errorf("%s: %w", step, cause)
}

// fileResult is what one file contributed to a job.
type fileResult struct {
	extracted bool
	chunks    int
	embedded  int
	failure   string
}

// process runs every file of a pending job and moves it to a terminal state.
func (s *IndexService) process(ctx context.Context, job *domain.Job, source driven.FileSource) (*domain.Job, error) {
	started := time.Now()
	dims := &dimensionTracker{}

	// Results are written by position so file order survives the fan-out.
	results := make([]fileResult, len(job.Files))
	var g errgroup.Group
	g.SetLimit(s.cfg.FileWorkers)
	for i, file := range job.Files {
		g.Go(func() error {
			results[i] = s.processFile(ctx, job.ID, source, file, dims)
			return nil
		})
	}
	_ = g.Wait()

	var extracted bool
	var chunks, embedded int
	for i, r := range results {
		if r.failure != "" {
			job.FileFailures = append(job.FileFailures, domain.FileFailure{
				FileID:   job.Files[i].ID,
				FileName: job.Files[i].Name,
				Reason:   r.failure,
			})
		}
		extracted = extracted || r.extracted
		chunks += r.chunks
		embedded += r.embedded
	}

	now := s.now()
	switch {
	case !extracted:
		_ = job.Fail(ReasonNoText, now)
	case embedded == 0:
		job.ChunkCount = chunks
		_ = job.Fail(ReasonNoEmbeddings, now)
	default:
		_ = job.Complete(chunks, embedded, now)
	}

	logger.Info("Job %s %s: %d files, %d chunks (%d embedded), %d failures in %s",
		job.ID, job.Status, len(job.Files), chunks, embedded, len(job.FileFailures),
		time.Since(started).Round(time.Millisecond))

	return s.finish(ctx, job)
}

// processFile fetches, extracts, chunks and embeds one file, then adds its
// chunks to the index. Failures are reported, never returned.
func (s *IndexService) processFile(
	ctx context.Context,
	jobID string,
	source driven.FileSource,
	file domain.FileDescriptor,
	dims *dimensionTracker,
) fileResult {
	fail := func(outcome, reason string) fileResult {
		logger.Warn("Job %s: skipping %s: %s", jobID, file.Name, reason)
		metrics.FileProcessed(outcome)
		return fileResult{failure: reason}
	}

	raw, err := source.Fetch(ctx, file)
	if err != nil {
		return fail(metrics.OutcomeFailed, fmt.Sprintf("fetch: %v", err))
	}

	doc, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		return fail(metrics.OutcomeSkipped, err.Error())
	}
	doc.JobID = jobID
	doc.FileID = file.ID
	if doc.FileName == "" {
		doc.FileName = file.Name
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return fail(metrics.OutcomeFailed, fmt.Sprintf("chunk: %v", err))
	}
	if len(chunks) == 0 {
		return fail(metrics.OutcomeSkipped, "no text")
	}

	embedded := s.embedChunks(ctx, jobID, chunks, dims)

	if err := s.stores.Index.Add(ctx, jobID, chunks); err != nil {
		return fail(metrics.OutcomeFailed, fmt.Sprintf("index: %v", err))
	}

	if embedded == 0 {
		metrics.FileProcessed(metrics.OutcomeDegraded)
	} else {
		metrics.FileProcessed(metrics.OutcomeOK)
	}
	logger.Debug("Job %s: indexed %s (%d chunks, %d embedded)", jobID, file.Name, len(chunks), embedded)

	return fileResult{extracted: true, chunks: len(chunks), embedded: embedded}
}

// embedChunks fills in chunk embeddings in place and returns how many
// succeeded. A failed or mismatched vector leaves the chunk unsearchable.
func (s *IndexService) embedChunks(ctx context.Context, jobID string, chunks []domain.Chunk, dims *dimensionTracker) int {
	ok := make([]bool, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.cfg.EmbedWorkers)
	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embedder.Embed(ctx, chunks[i].Content)
			if err == nil && !dims.accept(len(vec)) {
				err = fmt.Errorf("%w: got %d dimensions, job uses %d",
					domain.ErrDimensionMismatch, len(vec), dims.get())
			}
			metrics.ChunkEmbedded(err == nil)
			if err != nil {
				logger.Warn("Job %s: embedding chunk %s failed: %v", jobID, chunks[i].ID, err)
				return nil
			}
			chunks[i].Embedding = vec
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, v := range ok {
		if v {
			n++
		}
	}
	return n
}

// finish stores a terminal job, records it and applies retention.
func (s *IndexService) finish(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if err := s.stores.Jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	metrics.JobFinished(job.Status.String())
	if job.Status == domain.JobFailed {
		logger.Warn("Job %s failed: %s", job.ID, job.Error)
	}

	if err := s.applyRetention(ctx); err != nil {
		logger.Warn("Retention pass failed: %v", err)
	}
	return job.Clone(), nil
}

// dimensionTracker fixes a job's embedding dimension from its first vector.
type dimensionTracker struct {
	mu   sync.Mutex
	dims int
}

// accept reports whether a vector of length n fits the job.
func (d *dimensionTracker) accept(n int) bool {
	if n == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dims == 0 {
		d.dims = n
		return true
	}
	return d.dims == n
}

func (d *dimensionTracker) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dims
}
