package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/photolib/server/internal/observability"
	"github.com/photolib/server/internal/repository"
)

// JanitorStatus represents the current status of cache maintenance
type JanitorStatus struct {
	Running          bool      `json:"running"`
	Enabled          bool      `json:"enabled"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	EntriesEvicted   int       `json:"entriesEvicted"`
	DanglingRemoved  int       `json:"danglingRemoved"`
	OrphanedRemoved  int       `json:"orphanedRemoved"`
	Errors           []string  `json:"errors,omitempty"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// orphanGracePeriod keeps the orphan sweep away from files still being
// committed: a cache write renames its temp file into place before the
// bookkeeping row exists, so a very fresh file without a row is likely
// mid-write, not abandoned.
const orphanGracePeriod = time.Minute

// CacheJanitor runs periodic content-cache maintenance: budget enforcement,
// dangling row cleanup, and orphaned file sweeps.
type CacheJanitor struct {
	cache    *ContentCache
	repo     repository.CacheRepo
	maxBytes int64
	interval time.Duration

	mu       sync.RWMutex
	enabled  bool
	running  bool
	stopChan chan struct{}
	status   JanitorStatus
	ticker   *time.Ticker
}

// NewCacheJanitor creates a new CacheJanitor
func NewCacheJanitor(cache *ContentCache, repo repository.CacheRepo, maxBytes int64, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CacheJanitor{
		cache:    cache,
		repo:     repo,
		maxBytes: maxBytes,
		interval: interval,
		stopChan: make(chan struct{}),
		enabled:  true,
		status: JanitorStatus{
			Enabled: true,
			Errors:  []string{},
		},
	}
}

// Start begins the background maintenance loop
func (j *CacheJanitor) Start() {
	j.mu.Lock()
	if j.ticker != nil {
		j.mu.Unlock()
		return // Already started
	}
	j.enabled = true
	j.status.Enabled = true
	j.stopChan = make(chan struct{})
	j.ticker = time.NewTicker(j.interval)
	j.status.NextScheduledRun = time.Now().Add(j.interval)
	j.mu.Unlock()

	observability.Infof("Cache janitor started (runs every %s)", j.interval)

	// Run immediately on startup
	go j.runMaintenance()

	go func() {
		for {
			select {
			case <-j.ticker.C:
				j.mu.Lock()
				j.status.NextScheduledRun = time.Now().Add(j.interval)
				j.mu.Unlock()
				j.runMaintenance()
			case <-j.stopChan:
				j.mu.Lock()
				j.ticker.Stop()
				j.ticker = nil
				j.mu.Unlock()
				observability.Info("Cache janitor stopped")
				return
			}
		}
	}()
}

// Stop stops the janitor
func (j *CacheJanitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.ticker == nil {
		return // Already stopped
	}

	j.enabled = false
	j.status.Enabled = false
	close(j.stopChan)
}

// IsEnabled returns whether the janitor is enabled
func (j *CacheJanitor) IsEnabled() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.enabled
}

// GetStatus returns the current janitor status
func (j *CacheJanitor) GetStatus() JanitorStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// RunNow triggers an immediate maintenance run
func (j *CacheJanitor) RunNow() {
	go j.runMaintenance()
}

// runMaintenance performs all cache maintenance tasks
func (j *CacheJanitor) runMaintenance() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		observability.Info("Cache maintenance already running, skipping")
		return
	}
	j.running = true
	j.status.Running = true
	j.status.Errors = []string{}
	j.mu.Unlock()

	startTime := time.Now()
	ctx := context.Background()
	observability.Info("Running cache maintenance...")

	var errors []string

	evicted, err := j.cache.EvictLRU(ctx, j.maxBytes)
	if err != nil {
		errMsg := "Eviction failed: " + err.Error()
		observability.Warnf("Cache maintenance: %s", errMsg)
		errors = append(errors, errMsg)
	}

	dangling, danglingErrors := j.removeDanglingRows(ctx)
	errors = append(errors, danglingErrors...)

	orphaned, orphanErrors := j.removeOrphanedFiles(ctx)
	errors = append(errors, orphanErrors...)

	duration := time.Since(startTime)

	j.mu.Lock()
	j.running = false
	j.status.Running = false
	j.status.LastRun = startTime
	j.status.LastRunDuration = duration.Round(time.Millisecond).String()
	j.status.EntriesEvicted = evicted
	j.status.DanglingRemoved = dangling
	j.status.OrphanedRemoved = orphaned
	j.status.Errors = errors
	j.mu.Unlock()

	if evicted > 0 || dangling > 0 || orphaned > 0 {
		observability.Infof("Cache maintenance: evicted %d, removed %d dangling rows, %d orphaned files", evicted, dangling, orphaned)
	}
	if len(errors) > 0 {
		observability.Warnf("Cache maintenance completed with %d errors", len(errors))
	}

	observability.Infof("Cache maintenance completed in %s", duration.Round(time.Millisecond))
}

// removeDanglingRows deletes bookkeeping rows whose file is gone from disk.
// Hashes are collected across the full sweep before any row is deleted;
// deleting while paging forward would shift later rows into already-visited
// pages and skip them.
func (j *CacheJanitor) removeDanglingRows(ctx context.Context) (int, []string) {
	var errors []string

	var dangling []string
	page := 1
	const pageSize = 200
	for {
		entries, _, err := j.repo.ListPaged(ctx, page, pageSize)
		if err != nil {
			errMsg := "Failed to list cache entries: " + err.Error()
			observability.Warnf("Cache maintenance: %s", errMsg)
			return 0, append(errors, errMsg)
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			if _, err := os.Stat(entry.LocalPath); err == nil || !os.IsNotExist(err) {
				continue
			}
			dangling = append(dangling, entry.Hash)
		}

		if len(entries) < pageSize {
			break
		}
		page++
	}

	removed := 0
	for _, hash := range dangling {
		if _, err := j.repo.Delete(ctx, hash); err != nil {
			errMsg := "Failed to delete dangling row " + hash + ": " + err.Error()
			observability.Warnf("Cache maintenance: %s", errMsg)
			errors = append(errors, errMsg)
			continue
		}
		removed++
	}

	return removed, errors
}

// removeOrphanedFiles deletes files under the cache directory that have no
// bookkeeping row. Temp files from in-flight writes are left alone.
func (j *CacheJanitor) removeOrphanedFiles(ctx context.Context) (int, []string) {
	var errors []string

	removed := 0
	walkErr := filepath.Walk(j.cache.CacheDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || strings.Contains(name, ".tmp") {
			return nil
		}
		if time.Since(info.ModTime()) < orphanGracePeriod {
			return nil
		}

		// Cached files are named by their hash
		entry, getErr := j.repo.GetByHash(ctx, strings.ToLower(name))
		if getErr != nil {
			errors = append(errors, "Failed to look up "+name+": "+getErr.Error())
			return nil
		}
		if entry != nil {
			return nil
		}

		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			errors = append(errors, "Failed to remove orphaned file "+path+": "+rmErr.Error())
			return nil
		}
		removed++
		return nil
	})
	if walkErr != nil {
		errors = append(errors, "Cache directory walk failed: "+walkErr.Error())
	}

	return removed, errors
}
