package repository

import (
	"context"
	"time"

	"github.com/photolib/server/internal/models"
)

// MediaRepo defines the interface for media metadata persistence
type MediaRepo interface {
	GetByID(ctx context.Context, id string) (*models.MediaRecord, error)
	GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error)
	// GetProviderFileIDs returns provider-file-id -> media-record-id for every
	// record owned by the provider. This is the sync engine's known-id set.
	GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error)
	GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error)
	GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error)
	GetCount(ctx context.Context) (int, error)
	Add(ctx context.Context, record *models.MediaRecord) error
	// AddBatch inserts records in a single transaction.
	AddBatch(ctx context.Context, records []*models.MediaRecord) error
	UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ProviderRepo defines the interface for storage provider configuration rows
type ProviderRepo interface {
	GetByID(ctx context.Context, id string) (*models.StorageProviderRecord, error)
	GetAll(ctx context.Context, enabledOnly bool) ([]*models.StorageProviderRecord, error)
	GetByType(ctx context.Context, providerType models.ProviderType) ([]*models.StorageProviderRecord, error)
	Add(ctx context.Context, record *models.StorageProviderRecord) error
	Update(ctx context.Context, record *models.StorageProviderRecord) error
	UpdateLastSync(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

// CacheRepo defines the interface for content cache bookkeeping rows
type CacheRepo interface {
	GetByHash(ctx context.Context, hash string) (*models.CacheEntry, error)
	Add(ctx context.Context, entry *models.CacheEntry) error
	// Touch updates the last-accessed timestamp and increments the access counter.
	Touch(ctx context.Context, hash string, at time.Time) error
	SetProviderFileID(ctx context.Context, hash, fileID string) error
	TotalSize(ctx context.Context) (int64, error)
	GetCount(ctx context.Context) (int, error)
	// GetLeastRecentlyUsed returns entries ordered by ascending last-accessed time.
	GetLeastRecentlyUsed(ctx context.Context, limit int) ([]*models.CacheEntry, error)
	// ListPaged returns entries ordered most-recently-accessed first.
	ListPaged(ctx context.Context, page, pageSize int) ([]*models.CacheEntry, int, error)
	GetByProvider(ctx context.Context, providerID string) ([]*models.CacheEntry, error)
	Delete(ctx context.Context, hash string) (bool, error)
	DeleteByProvider(ctx context.Context, providerID string) (int, error)
}
