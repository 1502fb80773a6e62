package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/postprocessors"
	"github.com/custodia-labs/foldertalk/internal/postprocessors/chunker"
)

const testFolderURL = "https://drive.google.com/drive/folders/folder-1"

// mockSourceFactory hands out one mockSource for any token.
type mockSourceFactory struct {
	source *mockSource
	err    error
}

func (f *mockSourceFactory) ForToken(_ context.Context, token string) (driven.FileSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	return f.source, nil
}

// mockSource serves files from memory. Fetch honours cancellation.
type mockSource struct {
	name      string
	folderErr error
	listErr   error
	files     []domain.FileDescriptor
	contents  map[string]string
	fetchErr  map[string]error
}

func newMockSource() *mockSource {
	return &mockSource{
		name:     "Reports",
		contents: make(map[string]string),
		fetchErr: make(map[string]error),
	}
}

func (s *mockSource) add(id, name, mimeType, content string) *mockSource {
	s.files = append(s.files, domain.FileDescriptor{ID: id, Name: name, MIMEType: mimeType, Size: int64(len(content))})
	s.contents[id] = content
	return s
}

func (s *mockSource) Folder(_ context.Context, folderID string) (*driven.FolderInfo, error) {
	if s.folderErr != nil {
		return nil, s.folderErr
	}
	return &driven.FolderInfo{ID: folderID, Name: s.name}, nil
}

func (s *mockSource) ListFiles(_ context.Context, _ string) ([]domain.FileDescriptor, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.files, nil
}

func (s *mockSource) Fetch(ctx context.Context, file domain.FileDescriptor) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.fetchErr[file.ID]; err != nil {
		return nil, err
	}
	return &domain.RawDocument{File: file, MIMEType: file.MIMEType, Content: []byte(s.contents[file.ID])}, nil
}

// mockExtractor returns the raw bytes as text.
type mockExtractor struct{}

func (mockExtractor) Extract(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	text := strings.TrimSpace(string(raw.Content))
	if text == "" {
		return nil, &domain.ExtractionError{FileName: raw.File.Name, MIMEType: raw.MIMEType, Reason: "no text"}
	}
	return &domain.Document{FileName: raw.File.Name, MIMEType: raw.MIMEType, Content: text}, nil
}

// mockEmbedder maps text to vectors over the words alpha, beta and gamma.
// fail and override let tests change the result for matching text.
type mockEmbedder struct {
	mu       sync.Mutex
	calls    int
	fail     func(text string) bool
	override func(text string) []float32
}

func (e *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.fail != nil && e.fail(text) {
		return nil, domain.ErrEmbedding
	}
	if e.override != nil {
		if v := e.override(text); v != nil {
			return v, nil
		}
	}
	return []float32{
		float32(strings.Count(text, "alpha")),
		float32(strings.Count(text, "beta")),
		float32(strings.Count(text, "gamma")),
		0.01,
	}, nil
}

func (e *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *mockEmbedder) Dimensions() int              { return 4 }
func (e *mockEmbedder) ModelName() string            { return "mock" }
func (e *mockEmbedder) Ping(_ context.Context) error { return nil }
func (e *mockEmbedder) Close() error                 { return nil }

func (e *mockEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// mockLLM records prompts and replies with a fixed answer.
type mockLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	prompts  [][]driven.ChatMessage
	options  []driven.ChatOptions
	inFlight int
	maxIn    int
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, messages)
	m.options = append(m.options, opts)
	m.inFlight++
	if m.inFlight > m.maxIn {
		m.maxIn = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) lastPrompt() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return nil
	}
	return m.prompts[len(m.prompts)-1]
}

// mockValidator accepts tokens listed in identities.
type mockValidator struct {
	identities map[string]domain.Identity
	err        error
	calls      int
}

func (v *mockValidator) Validate(_ context.Context, token string) (*domain.Identity, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	id, ok := v.identities[token]
	if !ok {
		return nil, domain.ErrAuthInvalid
	}
	return &id, nil
}

// mockVerifier accepts ID tokens listed in identities.
type mockVerifier struct {
	identities map[string]domain.Identity
}

func (v *mockVerifier) Verify(_ context.Context, token string) (*domain.Identity, error) {
	id, ok := v.identities[token]
	if !ok {
		return nil, errors.Join(domain.ErrAuthInvalid, errors.New("bad signature"))
	}
	return &id, nil
}

func newStores() Stores {
	return Stores{
		Jobs:          memory.NewJobStore(),
		Index:         memory.NewDocumentIndex(),
		Conversations: memory.NewConversationStore(0),
	}
}

// newTestPipeline chunks into windows of five words overlapping by one.
func newTestPipeline(t *testing.T) driven.PostProcessorPipeline {
	t.Helper()
	p, err := chunker.New(chunker.WithChunkSize(5), chunker.WithOverlap(1))
	require.NoError(t, err)
	return postprocessors.NewPipeline(p)
}

type indexFixture struct {
	source   *mockSource
	embedder *mockEmbedder
	stores   Stores
	svc      *IndexService
}

func newIndexFixture(t *testing.T, cfg IndexConfig) *indexFixture {
	t.Helper()
	f := &indexFixture{
		source:   newMockSource(),
		embedder: &mockEmbedder{},
		stores:   newStores(),
	}
	f.svc = NewIndexService(&mockSourceFactory{source: f.source}, mockExtractor{},
		newTestPipeline(t), f.embedder, f.stores, cfg)

	var n int
	var mu sync.Mutex
	f.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "job-" + strconv.Itoa(n)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		base = base.Add(time.Second)
		return base
	}
	return f
}
