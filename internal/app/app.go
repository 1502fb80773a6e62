// Package app assembles foldertalk's services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"

	"github.com/custodia-labs/foldertalk/internal/adapters/driven/ai"
	"github.com/custodia-labs/foldertalk/internal/adapters/driven/auth"
	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/foldertalk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/foldertalk/internal/config"
	"github.com/custodia-labs/foldertalk/internal/connectors/google"
	"github.com/custodia-labs/foldertalk/internal/connectors/google/drive"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/core/services"
	"github.com/custodia-labs/foldertalk/internal/logger"
	"github.com/custodia-labs/foldertalk/internal/normalisers"
	"github.com/custodia-labs/foldertalk/internal/normalisers/pdf"
	"github.com/custodia-labs/foldertalk/internal/postprocessors"
)

// App holds the wired services and the resources they share.
type App struct {
	Config *config.Config

	Index *services.IndexService
	Chat  *services.ChatService
	Auth  *services.AuthService

	AI *ai.Services

	closers []func() error
}

// Option customises how an App is built.
type Option func(*options)

type options struct {
	driveOptions []option.ClientOption
	httpClient   *http.Client
}

// WithDriveOptions passes client options to every Drive client, e.g. to use
// a fake endpoint in tests.
func WithDriveOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.driveOptions = append(o.driveOptions, opts...)
	}
}

// WithHTTPClient sets the client used for AI providers and token validation.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// New builds the application. Call Close when done.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	stores, sessions, err := a.openStores()
	if err != nil {
		return nil, err
	}

	aiServices, err := a.openAI(o.httpClient)
	if err != nil {
		return nil, err
	}
	a.AI = aiServices

	pipeline, err := postprocessors.BuildPipeline(postprocessors.NewDefaultRegistry(), cfg.PipelineConfig())
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	driveOpts := o.driveOptions
	if cfg.Drive.Endpoint != "" {
		driveOpts = append(driveOpts, option.WithEndpoint(cfg.Drive.Endpoint))
	}
	sources := drive.NewFactory(drive.Config{
		PageSize:          cfg.Drive.PageSize,
		Recursive:         cfg.Drive.Recursive,
		MaxFileSize:       cfg.Drive.MaxFileSize,
		Timeout:           cfg.Drive.Timeout,
		RequestsPerSecond: cfg.Drive.RequestsPerSecond,
	}, driveOpts...)

	a.Index = services.NewIndexService(sources, NewExtractor(cfg.Extraction), pipeline, aiServices.Embedding, stores,
		services.IndexConfig{
			FileWorkers:  cfg.Index.FileWorkers,
			EmbedWorkers: cfg.Index.EmbedWorkers,
			MaxJobs:      cfg.Index.MaxJobs,
		})

	answers := services.NewAnswerGenerator(aiServices.LLM, services.AnswerConfig{
		HistoryTurns: cfg.Chat.HistoryTurns,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
	})
	a.Chat = services.NewChatService(stores, aiServices.Embedding, answers, services.ChatConfig{TopK: cfg.Chat.TopK})

	validator, verifier, err := newAuth(cfg.Auth, o.httpClient)
	if err != nil {
		return nil, err
	}
	a.Auth = services.NewAuthService(validator, verifier, sessions)

	ok = true
	return a, nil
}

// CheckProviders pings the AI providers. Failures are logged, not fatal.
func (a *App) CheckProviders(ctx context.Context) {
	if a.AI == nil {
		return
	}
	_ = ai.Check(ctx, "Embedding", a.AI.Embedding)
	_ = ai.Check(ctx, "LLM", a.AI.LLM)
}

// Close waits for background jobs and releases resources.
func (a *App) Close() error {
	if a.Index != nil {
		a.Index.Wait()
	}
	if a.AI != nil {
		a.AI.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewExtractor builds the text extractor with the configured PDF settings.
func NewExtractor(cfg config.ExtractionConfig) *normalisers.Extractor {
	return normalisers.NewExtractor(normalisers.WithPDF(pdf.New(
		pdf.WithMinTextLength(cfg.PDFMinText),
		pdf.WithOCR(cfg.OCR),
		pdf.WithOCRLanguage(cfg.OCRLanguage),
		pdf.WithDPI(cfg.DPI),
	)))
}

func (a *App) openStores() (services.Stores, driven.SessionStore, error) {
	cfg := a.Config
	switch strings.ToLower(cfg.Storage.Backend) {
	case config.BackendSQLite:
		store, err := sqlite.NewStore(cfg.Storage.DSN)
		if err != nil {
			return services.Stores{}, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		logger.Info("Using SQLite store at %s", store.DSN())
		return services.Stores{
			Jobs:          store.JobStore(),
			Index:         store.DocumentIndex(),
			Conversations: store.ConversationStore(cfg.Chat.Window),
		}, store.SessionStore(), nil
	default:
		logger.Debug("Using in-memory store")
		return services.Stores{
			Jobs:          memory.NewJobStore(),
			Index:         memory.NewDocumentIndex(),
			Conversations: memory.NewConversationStore(cfg.Chat.Window),
		}, memory.NewSessionStore(), nil
	}
}

func (a *App) openAI(client *http.Client) (*ai.Services, error) {
	cfg := a.Config

	embedding, err := ai.NewEmbeddingService(cfg.EmbeddingSettings(), ai.Options{
		Guard: ai.GuardConfig{
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Burst:             cfg.Embedding.Burst,
			MaxConcurrent:     cfg.Embedding.MaxConcurrent,
			Timeout:           cfg.Embedding.Timeout,
		},
		CacheSize:  cfg.Cache.EmbeddingSize,
		CacheTTL:   cfg.Cache.EmbeddingTTL,
		HTTPClient: client,
	})
	if err != nil {
		return nil, err
	}

	llm, err := ai.NewLLMService(cfg.LLMSettings(), ai.Options{
		Guard: ai.GuardConfig{
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
			MaxConcurrent:     cfg.LLM.MaxConcurrent,
			Timeout:           cfg.LLM.Timeout,
		},
		HTTPClient: client,
	})
	if err != nil {
		_ = embedding.Close()
		return nil, err
	}

	logger.Info("Embedding model %s, LLM %s", embedding.ModelName(), llm.ModelName())
	return &ai.Services{Embedding: embedding, LLM: llm}, nil
}

func newAuth(cfg config.AuthConfig, client *http.Client) (driven.TokenValidator, driven.IDTokenVerifier, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	validator := auth.NewGoogleValidator(google.NewUserInfoClient(cfg.UserInfoURL, client), auth.ValidatorConfig{
		CacheSize: cfg.TokenCacheSize,
		CacheTTL:  cfg.TokenCacheTTL,
		Timeout:   cfg.Timeout,
	})

	if cfg.ClientID == "" {
		logger.Debug("No OAuth client id configured; ID tokens are not verified")
		return validator, nil, nil
	}
	verifier, err := auth.NewIDTokenVerifier(auth.VerifierConfig{
		JWKSURL:         cfg.JWKSURL,
		ClientID:        cfg.ClientID,
		RefreshInterval: time.Hour,
		Timeout:         cfg.Timeout,
		Leeway:          30 * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create id token verifier: %w", err)
	}
	return validator, verifier, nil
}
