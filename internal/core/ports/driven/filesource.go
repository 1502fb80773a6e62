package driven

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// FolderInfo describes a folder looked up on a FileSource.
type FolderInfo struct {
	ID   string
	Name string
}

// FileSource reads one user's remote files.
type FileSource interface {
	// Folder looks up a folder. Returns domain.ErrSourceAccess when the
	// folder is missing, is not a folder, or cannot be read.
	Folder(ctx context.Context, folderID string) (*FolderInfo, error)

	// ListFiles returns the non-folder files in a folder, in listing order.
	ListFiles(ctx context.Context, folderID string) ([]domain.FileDescriptor, error)

	// Fetch downloads a file. Native documents are exported to text and the
	// returned RawDocument carries the export MIME type.
	Fetch(ctx context.Context, file domain.FileDescriptor) (*domain.RawDocument, error)
}

// FileSourceFactory opens a FileSource acting as the holder of an access token.
type FileSourceFactory interface {
	ForToken(ctx context.Context, accessToken string) (FileSource, error)
}

// TokenProvider supplies the access token a FileSource calls with.
// Tokens belong to the caller and are never refreshed here.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}
