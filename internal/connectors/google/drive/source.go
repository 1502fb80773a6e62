// Package drive implements a read-only Google Drive FileSource.
package drive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/foldertalk/internal/connectors/google"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// Ensure interfaces are implemented.
var (
	_ driven.FileSource        = (*Source)(nil)
	_ driven.FileSourceFactory = (*Factory)(nil)
)

// Factory opens a Source per access token.
type Factory struct {
	cfg      Config
	opts     []option.ClientOption
	limiters *google.LimiterPool
}

// NewFactory creates a factory. Client options are passed through to the
// Drive client, which lets tests substitute the endpoint and HTTP client.
func NewFactory(cfg Config, opts ...option.ClientOption) *Factory {
	cfg = cfg.withDefaults()
	return &Factory{
		cfg:      cfg,
		opts:     opts,
		limiters: google.NewLimiterPool(cfg.RequestsPerSecond, burstFor(cfg.RequestsPerSecond)),
	}
}

// ForToken opens a Source acting as the token holder.
func (f *Factory) ForToken(ctx context.Context, accessToken string) (driven.FileSource, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", domain.ErrAuthRequired)
	}

	ts := google.NewTokenSource(context.WithoutCancel(ctx), google.StaticToken(accessToken))
	svc, err := google.NewDriveService(ctx, ts, f.opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	src := NewSource(svc, f.cfg)
	src.limiter = f.limiters.For(accessToken)
	return src, nil
}

// Source reads files from one user's Drive.
type Source struct {
	svc     *drive.Service
	cfg     Config
	limiter *google.RateLimiter
}

// NewSource wraps an existing Drive service.
func NewSource(svc *drive.Service, cfg Config) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		svc:     svc,
		cfg:     cfg,
		limiter: google.NewRateLimiter(cfg.RequestsPerSecond, burstFor(cfg.RequestsPerSecond)),
	}
}

func burstFor(rps float64) int {
	return int(rps) + 2
}

// call waits for the limiter, bounds the call with the configured
// timeout and maps the result onto domain errors.
func (s *Source) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if google.IsRateLimited(err) {
		s.limiter.Backoff(time.Duration(google.RetryAfter(err)) * time.Second)
	}
	return google.ToDomain(err)
}

// Folder looks up a folder by id.
func (s *Source) Folder(ctx context.Context, folderID string) (*driven.FolderInfo, error) {
	var file *drive.File
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		file, err = s.svc.Files.Get(folderID).
			Fields("id, name, mimeType").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", folderID, err)
	}

	if file.MimeType != domain.MIMETypeGoogleFolder {
		return nil, fmt.Errorf("%w: %s is not a folder", domain.ErrSourceAccess, folderID)
	}

	return &driven.FolderInfo{ID: file.Id, Name: file.Name}, nil
}

// ListFiles returns the files in a folder in listing order. Sub-folders are
// skipped, or walked breadth-first when the source is recursive.
func (s *Source) ListFiles(ctx context.Context, folderID string) ([]domain.FileDescriptor, error) {
	var files []domain.FileDescriptor
	queue := []string{folderID}
	seen := map[string]bool{folderID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.listChildren(ctx, current)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if child.MimeType == domain.MIMETypeGoogleFolder {
				if s.cfg.Recursive && !seen[child.Id] {
					seen[child.Id] = true
					queue = append(queue, child.Id)
				}
				continue
			}
			files = append(files, toDescriptor(child))
		}
	}

	logger.Debug("drive: folder %s lists %d files", folderID, len(files))
	return files, nil
}

func (s *Source) listChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	var out []*drive.File
	pageToken := ""
	for {
		var list *drive.FileList
		err := s.call(ctx, func(ctx context.Context) error {
			req := s.svc.Files.List().
				Q(query).
				Fields(listFields).
				PageSize(s.cfg.PageSize).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			list, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		out = append(out, list.Files...)
		if list.NextPageToken == "" {
			return out, nil
		}
		pageToken = list.NextPageToken
	}
}

// Fetch downloads a file, exporting native documents to text.
func (s *Source) Fetch(ctx context.Context, file domain.FileDescriptor) (*domain.RawDocument, error) {
	if file.Size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d",
			domain.ErrSourceAccess, file.Name, file.Size, s.cfg.MaxFileSize)
	}

	mimeType := file.MIMEType
	var content []byte
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		if exportMIME, ok := domain.ExportMIMEType(file.MIMEType); ok {
			mimeType = exportMIME
			content, err = exportFile(ctx, s.svc, file.ID, exportMIME, s.cfg.MaxFileSize)
			return err
		}
		content, err = downloadFile(ctx, s.svc, file.ID, s.cfg.MaxFileSize)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrSourceAccess) && !errors.Is(err, domain.ErrAuthInvalid) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceAccess, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", file.Name, err)
	}

	return &domain.RawDocument{
		File:     file,
		MIMEType: mimeType,
		Content:  content,
	}, nil
}
