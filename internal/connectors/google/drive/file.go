package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// listFields are the file fields requested when listing a folder.
const listFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime)"

// toDescriptor converts a Drive file to a FileDescriptor.
func toDescriptor(file *drive.File) domain.FileDescriptor {
	desc := domain.FileDescriptor{
		ID:       file.Id,
		Name:     file.Name,
		MIMEType: file.MimeType,
		Size:     file.Size,
	}
	if file.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, file.ModifiedTime); err == nil {
			desc.ModifiedTime = t
		}
	}
	return desc
}

// readLimited reads a download body, failing when it exceeds limit bytes.
func readLimited(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

// exportFile exports a Google Workspace file to the given format.
func exportFile(ctx context.Context, svc *drive.Service, fileID, exportMIME string, limit int64) ([]byte, error) {
	resp, err := svc.Files.Export(fileID, exportMIME).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("export file: %w", err)
	}
	return readLimited(resp, limit)
}

// downloadFile downloads the bytes of a regular file.
func downloadFile(ctx context.Context, svc *drive.Service, fileID string, limit int64) ([]byte, error) {
	resp, err := svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return readLimited(resp, limit)
}
