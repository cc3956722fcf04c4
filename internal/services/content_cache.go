package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/observability"
	"github.com/photolib/server/internal/repository"
)

// evictTargetPercent is how full the cache is left after an eviction pass.
// Evicting below the budget gives subsequent writes headroom instead of
// triggering eviction on every put.
const evictTargetPercent = 80

// ContentCache is a content-addressed store for media bytes on local disk.
// Files are keyed by the SHA-256 of their content and fanned out two levels
// deep under the cache directory, with bookkeeping rows in the cache repo.
type ContentCache struct {
	repo        repository.CacheRepo
	hashService *HashService
	cacheDir    string
	maxBytes    int64
	metrics     *observability.CacheMetrics

	// evictMu serializes eviction passes. Puts can proceed concurrently.
	evictMu sync.Mutex
}

// NewContentCache creates a content cache rooted at cacheDir with the given
// size budget. metrics may be nil.
func NewContentCache(repo repository.CacheRepo, hashService *HashService, cacheDir string, maxBytes int64, metrics *observability.CacheMetrics) *ContentCache {
	return &ContentCache{
		repo:        repo,
		hashService: hashService,
		cacheDir:    cacheDir,
		maxBytes:    maxBytes,
		metrics:     metrics,
	}
}

// CacheDir returns the cache root directory
func (c *ContentCache) CacheDir() string {
	return c.cacheDir
}

// pathForHash fans a hash out as cacheDir/ab/cd/<hash>
func (c *ContentCache) pathForHash(hash string) string {
	return filepath.Join(c.cacheDir, hash[0:2], hash[2:4], hash)
}

// Get returns the cache entry for a hash, or nil when absent. A hit updates
// the entry's recency bookkeeping; failure to do so is logged, not fatal.
func (c *ContentCache) Get(ctx context.Context, hash string) (*models.CacheEntry, error) {
	if !c.hashService.IsValidHash(hash) {
		return nil, models.ErrEmptyHash
	}
	normalized := c.hashService.NormalizeHash(hash)

	entry, err := c.repo.GetByHash(ctx, normalized)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordLookup(ctx, entry != nil)
	if entry == nil {
		return nil, nil
	}

	if err := c.repo.Touch(ctx, normalized, time.Now().UTC()); err != nil {
		observability.Warnf("Failed to touch cache entry %s: %v", normalized, err)
	}

	return entry, nil
}

// GetStream opens the cached bytes for a hash. A missing entry returns
// (nil, nil); so does an entry whose file is gone from disk, which is treated
// as a miss and its dangling row removed.
func (c *ContentCache) GetStream(ctx context.Context, hash string) (io.ReadCloser, error) {
	entry, err := c.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	f, err := os.Open(entry.LocalPath)
	if os.IsNotExist(err) {
		observability.Warnf("Cache entry %s has no file at %s, removing row", entry.Hash, entry.LocalPath)
		if _, delErr := c.repo.Delete(ctx, entry.Hash); delErr != nil {
			observability.Warnf("Failed to remove dangling cache row %s: %v", entry.Hash, delErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Put stores content under its hash. The bytes are re-hashed while writing;
// content that does not match the caller's hash is rejected with
// ErrHashMismatch. Putting an already-cached hash is a no-op that backfills
// the provider file ID when the existing row has none.
func (c *ContentCache) Put(ctx context.Context, hash, originalURL, providerID string, providerFileID, pickerSessionID *string, content io.Reader, contentType string) (*models.CacheEntry, error) {
	if !c.hashService.IsValidHash(hash) {
		return nil, models.ErrEmptyHash
	}
	normalized := c.hashService.NormalizeHash(hash)

	existing, err := c.repo.GetByHash(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.ProviderFileID == nil && providerFileID != nil {
			if err := c.repo.SetProviderFileID(ctx, normalized, *providerFileID); err != nil {
				observability.Warnf("Failed to backfill provider file ID for %s: %v", normalized, err)
			}
		}
		return existing, nil
	}

	entry, err := c.writeContent(ctx, normalized, originalURL, providerID, providerFileID, pickerSessionID, content, contentType)
	if err != nil {
		return nil, err
	}

	c.metrics.RecordWrite(ctx, entry.FileSize)

	total, err := c.repo.TotalSize(ctx)
	if err != nil {
		observability.Warnf("Failed to read cache size after put: %v", err)
		return entry, nil
	}
	if c.maxBytes > 0 && total > c.maxBytes {
		if _, err := c.EvictLRU(ctx, c.maxBytes); err != nil {
			observability.Warnf("Cache eviction after put failed: %v", err)
		}
	}

	return entry, nil
}

func (c *ContentCache) writeContent(ctx context.Context, hash, originalURL, providerID string, providerFileID, pickerSessionID *string, content io.Reader, contentType string) (*models.CacheEntry, error) {
	finalPath := c.pathForHash(hash)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return nil, err
	}

	// Write through a temp file so the final path only ever holds verified,
	// complete content.
	tmp, err := os.CreateTemp(filepath.Dir(finalPath), "."+hash+".tmp*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()

	hasher := newStreamHasher()
	written, copyErr := io.Copy(io.MultiWriter(tmp, hasher), content)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr != nil {
			return nil, copyErr
		}
		return nil, closeErr
	}

	if actual := hasher.Sum(); actual != hash {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("content hashed to %s, expected %s: %w", actual, hash, models.ErrHashMismatch)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	now := time.Now().UTC()
	entry := &models.CacheEntry{
		Hash:            hash,
		ProviderID:      providerID,
		ProviderFileID:  providerFileID,
		PickerSessionID: pickerSessionID,
		OriginalURL:     originalURL,
		LocalPath:       finalPath,
		FileSize:        written,
		ContentType:     contentType,
		CachedAt:        now,
		LastAccessedAt:  now,
		AccessCount:     1,
	}

	if err := c.repo.Add(ctx, entry); err != nil {
		// A concurrent put may have won the insert race. The file on disk is
		// identical content either way, so return the row that stuck.
		if existing, getErr := c.repo.GetByHash(ctx, hash); getErr == nil && existing != nil {
			return existing, nil
		}
		os.Remove(finalPath)
		return nil, err
	}

	return entry, nil
}

// EvictLRU removes least-recently-used entries until the cache drops to the
// eviction target below maxBytes. Returns the number of entries removed.
// A cache already within budget is left untouched.
func (c *ContentCache) EvictLRU(ctx context.Context, maxBytes int64) (int, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	total, err := c.repo.TotalSize(ctx)
	if err != nil {
		return 0, err
	}
	if maxBytes <= 0 || total <= maxBytes {
		return 0, nil
	}

	target := maxBytes * evictTargetPercent / 100
	toFree := total - target

	var freed int64
	evicted := 0
	for freed < toFree {
		entries, err := c.repo.GetLeastRecentlyUsed(ctx, 50)
		if err != nil {
			return evicted, err
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if freed >= toFree {
				break
			}

			if err := os.Remove(entry.LocalPath); err != nil && !os.IsNotExist(err) {
				observability.Warnf("Failed to remove cached file %s: %v", entry.LocalPath, err)
			}
			// The row goes regardless so a failed disk delete cannot wedge
			// eviction; the janitor sweeps orphaned files.
			if _, err := c.repo.Delete(ctx, entry.Hash); err != nil {
				observability.Warnf("Failed to delete cache row %s: %v", entry.Hash, err)
				continue
			}

			freed += entry.FileSize
			evicted++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if evicted > 0 {
		c.metrics.RecordEviction(ctx, evicted, freed)
		observability.Infof("Evicted %d cache entries, freed %d bytes", evicted, freed)
	}

	return evicted, nil
}

// ClearAll removes every cache entry and its file. Returns the number of
// entries removed.
func (c *ContentCache) ClearAll(ctx context.Context) (int, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	removed := 0
	for {
		entries, err := c.repo.GetLeastRecentlyUsed(ctx, 200)
		if err != nil {
			return removed, err
		}
		if len(entries) == 0 {
			return removed, nil
		}

		for _, entry := range entries {
			if err := os.Remove(entry.LocalPath); err != nil && !os.IsNotExist(err) {
				observability.Warnf("Failed to remove cached file %s: %v", entry.LocalPath, err)
			}
			if _, err := c.repo.Delete(ctx, entry.Hash); err != nil {
				return removed, err
			}
			removed++
		}
	}
}

// ClearForProvider removes all entries owned by one provider. Returns the
// number of entries removed.
func (c *ContentCache) ClearForProvider(ctx context.Context, providerID string) (int, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	entries, err := c.repo.GetByProvider(ctx, providerID)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if err := os.Remove(entry.LocalPath); err != nil && !os.IsNotExist(err) {
			observability.Warnf("Failed to remove cached file %s: %v", entry.LocalPath, err)
		}
	}

	return c.repo.DeleteByProvider(ctx, providerID)
}

// ListPaged returns cache entries ordered most-recently-accessed first
func (c *ContentCache) ListPaged(ctx context.Context, page, pageSize int) ([]*models.CacheEntry, int, error) {
	return c.repo.ListPaged(ctx, page, pageSize)
}

// Status reports current cache usage against the budget
func (c *ContentCache) Status(ctx context.Context) (*models.CacheStatus, error) {
	total, err := c.repo.TotalSize(ctx)
	if err != nil {
		return nil, err
	}
	count, err := c.repo.GetCount(ctx)
	if err != nil {
		return nil, err
	}

	percent := 0.0
	if c.maxBytes > 0 {
		percent = float64(total) / float64(c.maxBytes) * 100
	}

	return &models.CacheStatus{
		TotalSizeBytes: total,
		FileCount:      count,
		MaxSizeBytes:   c.maxBytes,
		UsagePercent:   percent,
	}, nil
}
