package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/photolib/server/internal/models"
)

// CacheRepository handles content cache bookkeeping rows
type CacheRepository struct {
	db *sql.DB
}

// NewCacheRepository creates a new CacheRepository
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

const cacheColumns = `hash, provider_id, provider_file_id, picker_session_id, original_url, local_path, file_size, content_type, cached_at, last_accessed_at, access_count`

func scanCacheEntry(row interface{ Scan(...interface{}) error }) (*models.CacheEntry, error) {
	var e models.CacheEntry
	err := row.Scan(
		&e.Hash,
		&e.ProviderID,
		&e.ProviderFileID,
		&e.PickerSessionID,
		&e.OriginalURL,
		&e.LocalPath,
		&e.FileSize,
		&e.ContentType,
		&e.CachedAt,
		&e.LastAccessedAt,
		&e.AccessCount,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByHash retrieves a cache entry by content hash
func (r *CacheRepository) GetByHash(ctx context.Context, hash string) (*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE hash = ?`

	entry, err := scanCacheEntry(r.db.QueryRowContext(ctx, query, strings.ToLower(hash)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Add inserts a new cache entry
func (r *CacheRepository) Add(ctx context.Context, e *models.CacheEntry) error {
	query := `
		INSERT INTO cache_entries (hash, provider_id, provider_file_id, picker_session_id, original_url, local_path, file_size, content_type, cached_at, last_accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.Hash, e.ProviderID, e.ProviderFileID, e.PickerSessionID, e.OriginalURL,
		e.LocalPath, e.FileSize, e.ContentType, e.CachedAt, e.LastAccessedAt, e.AccessCount,
	)
	return err
}

// Touch updates the last-accessed timestamp and increments the access counter
func (r *CacheRepository) Touch(ctx context.Context, hash string, at time.Time) error {
	query := `UPDATE cache_entries SET last_accessed_at = ?, access_count = access_count + 1 WHERE hash = ?`
	_, err := r.db.ExecContext(ctx, query, at, strings.ToLower(hash))
	return err
}

// SetProviderFileID backfills the provider-file-id link on an existing entry
func (r *CacheRepository) SetProviderFileID(ctx context.Context, hash, fileID string) error {
	query := `UPDATE cache_entries SET provider_file_id = ? WHERE hash = ? AND provider_file_id IS NULL`
	_, err := r.db.ExecContext(ctx, query, fileID, strings.ToLower(hash))
	return err
}

// TotalSize returns the sum of all cached file sizes in bytes
func (r *CacheRepository) TotalSize(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT SUM(file_size) FROM cache_entries").Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// GetCount returns the number of cache entries
func (r *CacheRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries").Scan(&count)
	return count, err
}

// GetLeastRecentlyUsed returns entries ordered by ascending last-accessed time
func (r *CacheRepository) GetLeastRecentlyUsed(ctx context.Context, limit int) ([]*models.CacheEntry, error) {
	query := `
		SELECT ` + cacheColumns + ` FROM cache_entries
		ORDER BY last_accessed_at ASC
		LIMIT ?
	`

	return r.queryEntries(ctx, query, limit)
}

// ListPaged returns entries ordered most-recently-accessed first
func (r *CacheRepository) ListPaged(ctx context.Context, page, pageSize int) ([]*models.CacheEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	total, err := r.GetCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + cacheColumns + ` FROM cache_entries
		ORDER BY last_accessed_at DESC
		LIMIT ? OFFSET ?
	`

	entries, err := r.queryEntries(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetByProvider returns all entries owned by a provider
func (r *CacheRepository) GetByProvider(ctx context.Context, providerID string) ([]*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE provider_id = ?`
	return r.queryEntries(ctx, query, providerID)
}

func (r *CacheRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if entries == nil {
		entries = []*models.CacheEntry{}
	}

	return entries, rows.Err()
}

// Delete removes a cache entry by hash
func (r *CacheRepository) Delete(ctx context.Context, hash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE hash = ?", strings.ToLower(hash))
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// DeleteByProvider removes all entries owned by a provider and returns the count
func (r *CacheRepository) DeleteByProvider(ctx context.Context, providerID string) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE provider_id = ?", providerID)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
