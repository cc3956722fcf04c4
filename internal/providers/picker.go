package providers

import (
	"context"
	"io"
	"strings"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/repository"
)

// PickerProvider is a read-only provider whose contents are populated by
// explicit user-driven import. Listing is a metadata query over the records
// this provider owns, not a live remote call; reads resolve the record's
// content hash through the content cache.
type PickerProvider struct {
	id          string
	displayName string
	cfg         models.PickerProviderConfig

	mediaRepo    repository.MediaRepo
	contentStore ContentStore
}

// NewPickerProvider creates an uninitialized PickerProvider
func NewPickerProvider(mediaRepo repository.MediaRepo, contentStore ContentStore) *PickerProvider {
	return &PickerProvider{
		mediaRepo:    mediaRepo,
		contentStore: contentStore,
	}
}

func (p *PickerProvider) ID() string                { return p.id }
func (p *PickerProvider) Type() models.ProviderType { return models.ProviderTypeRemotePicker }
func (p *PickerProvider) DisplayName() string       { return p.displayName }
func (p *PickerProvider) SupportsUpload() bool      { return false }
func (p *PickerProvider) SupportsWatch() bool       { return false }

// Initialize sets identity fields and parses the config blob
func (p *PickerProvider) Initialize(id, displayName, configBlob string) {
	p.id = id
	p.displayName = displayName
	p.cfg = models.ParsePickerProviderConfig(configBlob)
}

// ListFiles returns descriptors for every imported record owned by this
// provider. folderID is ignored: picker imports are flat.
func (p *PickerProvider) ListFiles(ctx context.Context, folderID string, recursive bool) ([]models.RemoteFile, error) {
	const pageSize = 500

	files := []models.RemoteFile{}
	for skip := 0; ; skip += pageSize {
		records, err := p.mediaRepo.GetForProvider(ctx, p.id, skip, pageSize)
		if err != nil {
			return nil, err
		}

		for _, m := range records {
			fileID := m.ID
			if m.ProviderFileID != nil {
				fileID = *m.ProviderFileID
			}
			files = append(files, models.RemoteFile{
				ID:           fileID,
				Name:         m.Filename,
				Path:         m.StoredPath,
				Size:         m.FileSize,
				MediaType:    m.MediaType,
				CreatedTime:  m.DateTaken,
				ModifiedTime: m.AddedAt,
				Hash:         m.FileHash,
				Width:        m.Width,
				Height:       m.Height,
			})
		}

		if len(records) < pageSize {
			break
		}
	}

	return files, nil
}

// ReadFile streams the imported bytes for a file ID through the content
// cache. Records without a hash, and hashes whose bytes are gone from local
// storage, fail with ErrFileNotFound.
func (p *PickerProvider) ReadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	record, err := p.lookup(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record == nil || strings.TrimSpace(record.FileHash) == "" {
		return nil, models.ErrFileNotFound
	}

	stream, err := p.contentStore.GetStream(ctx, record.FileHash)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, models.ErrFileNotFound
	}

	return stream, nil
}

// WriteFile is not supported: picker contents arrive via user-driven import
func (p *PickerProvider) WriteFile(ctx context.Context, filename string, r io.Reader, contentType string) (*models.WriteResult, error) {
	return nil, models.ErrNotSupported
}

// DeleteFile is not supported at the source
func (p *PickerProvider) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	return false, models.ErrNotSupported
}

// FileExists reports whether a record with readable bytes exists
func (p *PickerProvider) FileExists(ctx context.Context, fileID string) bool {
	record, err := p.lookup(ctx, fileID)
	if err != nil || record == nil || strings.TrimSpace(record.FileHash) == "" {
		return false
	}

	stream, err := p.contentStore.GetStream(ctx, record.FileHash)
	if err != nil || stream == nil {
		return false
	}
	stream.Close()
	return true
}

// TestConnection reports whether the metadata store is reachable
func (p *PickerProvider) TestConnection(ctx context.Context) bool {
	_, err := p.mediaRepo.GetForProvider(ctx, p.id, 0, 1)
	return err == nil
}

func (p *PickerProvider) lookup(ctx context.Context, fileID string) (*models.MediaRecord, error) {
	record, err := p.mediaRepo.GetByProviderFileID(ctx, p.id, fileID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	// Imported records created before provider-file-id linking fall back to
	// lookup by record ID.
	record, err = p.mediaRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record != nil && record.ProviderID != nil && *record.ProviderID == p.id {
		return record, nil
	}
	return nil, nil
}
