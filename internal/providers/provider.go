package providers

import (
	"context"
	"io"

	"github.com/photolib/server/internal/models"
)

// StorageProvider is the uniform surface over heterogeneous storage backends.
// Implementations are constructed uninitialized and prepared via Initialize;
// Initialize tolerates malformed configuration by falling back to defaults.
type StorageProvider interface {
	ID() string
	Type() models.ProviderType
	DisplayName() string

	// Initialize sets identity fields and parses the opaque config blob.
	// It performs no I/O and never fails on bad config.
	Initialize(id, displayName, configBlob string)

	// ListFiles lists entries under folderID (or the root when empty).
	// It must not mutate provider state.
	ListFiles(ctx context.Context, folderID string, recursive bool) ([]models.RemoteFile, error)

	// ReadFile returns the content stream for a file. Unknown IDs and files
	// whose bytes are missing from local storage fail with ErrFileNotFound.
	ReadFile(ctx context.Context, fileID string) (io.ReadCloser, error)

	// WriteFile stores new content. Read-only providers fail with ErrNotSupported.
	WriteFile(ctx context.Context, filename string, r io.Reader, contentType string) (*models.WriteResult, error)

	// DeleteFile removes a file at the source. A missing file returns
	// (false, nil); providers that cannot delete fail with ErrNotSupported.
	DeleteFile(ctx context.Context, fileID string) (bool, error)

	FileExists(ctx context.Context, fileID string) bool

	// TestConnection is best-effort and never returns an error: any
	// credential or connectivity problem reports false.
	TestConnection(ctx context.Context) bool

	// Capability flags, static per provider kind.
	SupportsUpload() bool
	SupportsWatch() bool
}

// ContentStore is the slice of the content cache the picker provider needs
// to materialize imported bytes. Satisfied by services.ContentCache.
type ContentStore interface {
	GetStream(ctx context.Context, hash string) (io.ReadCloser, error)
}
