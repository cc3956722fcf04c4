package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/observability"
	"github.com/photolib/server/internal/providers"
	"github.com/photolib/server/internal/repository"
)

// syncFlushInterval is how many processed files accumulate before pending
// inserts are flushed and progress is published.
const syncFlushInterval = 10

// SyncNotifier receives live status updates during a sync pass. Implementations
// must not block; the sync loop calls this inline.
type SyncNotifier interface {
	PublishSyncStatus(status *models.SyncStatus)
}

// ProviderResolver resolves provider IDs to initialized instances. The
// provider Registry is the production implementation.
type ProviderResolver interface {
	GetProvider(ctx context.Context, id string) (providers.StorageProvider, error)
}

type activeSync struct {
	cancel context.CancelFunc
}

// SyncService reconciles provider listings into the media metadata store.
// At most one sync runs per provider at a time; different providers may sync
// concurrently.
type SyncService struct {
	registry     ProviderResolver
	mediaRepo    repository.MediaRepo
	providerRepo repository.ProviderRepo
	notifier     SyncNotifier
	metrics      *observability.SyncMetrics

	mu     sync.Mutex
	active map[string]*activeSync

	statusMu sync.RWMutex
	statuses map[string]*models.SyncStatus
}

// NewSyncService creates a sync service. notifier and metrics may be nil.
func NewSyncService(registry ProviderResolver, mediaRepo repository.MediaRepo, providerRepo repository.ProviderRepo, notifier SyncNotifier, metrics *observability.SyncMetrics) *SyncService {
	return &SyncService{
		registry:     registry,
		mediaRepo:    mediaRepo,
		providerRepo: providerRepo,
		notifier:     notifier,
		metrics:      metrics,
		active:       make(map[string]*activeSync),
		statuses:     make(map[string]*models.SyncStatus),
	}
}

// SyncProvider runs one reconciliation pass for a provider. A pass already in
// progress for the same provider is not interrupted; the second call returns
// a failed result immediately.
func (s *SyncService) SyncProvider(ctx context.Context, providerID string, opts models.SyncOptions) *models.SyncResult {
	startedAt := time.Now().UTC()

	// Atomic check-and-claim of the per-provider guard
	s.mu.Lock()
	if _, running := s.active[providerID]; running {
		s.mu.Unlock()
		return models.FailedSyncResult(providerID, "Sync already in progress for this provider", startedAt)
	}
	syncCtx, cancel := context.WithCancel(ctx)
	s.active[providerID] = &activeSync{cancel: cancel}
	s.mu.Unlock()

	var result *models.SyncResult
	defer func() {
		s.mu.Lock()
		delete(s.active, providerID)
		s.mu.Unlock()
		cancel()

		s.publishStatus(&models.SyncStatus{
			ProviderID: providerID,
			InProgress: false,
			Progress:   100,
			LastResult: result,
		})

		if s.metrics != nil {
			s.metrics.RecordSyncRun(ctx, providerID, time.Since(startedAt),
				result.FilesAdded, result.FilesRemoved, len(result.Errors), result.Success)
		}
	}()

	result = s.runSync(syncCtx, providerID, opts, startedAt)
	return result
}

func (s *SyncService) runSync(ctx context.Context, providerID string, opts models.SyncOptions, startedAt time.Time) *models.SyncResult {
	provider, err := s.registry.GetProvider(ctx, providerID)
	if err != nil {
		return models.FailedSyncResult(providerID, fmt.Sprintf("Failed to resolve provider: %v", err), startedAt)
	}
	if provider == nil {
		return models.FailedSyncResult(providerID, "Provider not found or disabled", startedAt)
	}

	observability.Infof("Starting sync for provider %s (%s)", providerID, provider.DisplayName())

	s.publishStatus(&models.SyncStatus{
		ProviderID:       providerID,
		InProgress:       true,
		Progress:         0,
		CurrentOperation: "Scanning files...",
		StartedAt:        startedAt,
	})

	listed, err := provider.ListFiles(ctx, opts.FolderID, opts.Recursive)
	if err != nil {
		return models.FailedSyncResult(providerID, fmt.Sprintf("Failed to list files: %v", err), startedAt)
	}

	// Folders are structure, not content
	files := make([]models.RemoteFile, 0, len(listed))
	for _, f := range listed {
		if !f.IsFolder {
			files = append(files, f)
		}
	}
	total := len(files)

	s.publishStatus(&models.SyncStatus{
		ProviderID:       providerID,
		InProgress:       true,
		Progress:         10,
		CurrentOperation: fmt.Sprintf("Processing %d files...", total),
		TotalFiles:       total,
		StartedAt:        startedAt,
	})

	known, err := s.mediaRepo.GetProviderFileIDs(ctx, providerID)
	if err != nil {
		return models.FailedSyncResult(providerID, fmt.Sprintf("Failed to load known files: %v", err), startedAt)
	}

	result := &models.SyncResult{
		ProviderID: providerID,
		StartedAt:  startedAt,
		Errors:     []string{},
	}
	result.TotalFilesFound = total

	seen := make(map[string]bool, total)
	var pending []*models.MediaRecord

	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := s.mediaRepo.AddBatch(ctx, pending); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to save batch of %d records: %v", len(pending), err))
			result.FilesAdded -= len(pending)
		}
		pending = pending[:0]
	}

	for i, file := range files {
		select {
		case <-ctx.Done():
			// Work accepted before the cancellation point stays committed, so
			// the last flush must outlive the cancelled sync context.
			flush(context.WithoutCancel(ctx))
			cancelled := models.FailedSyncResult(providerID, "Sync was cancelled", startedAt)
			cancelled.FilesAdded = result.FilesAdded
			cancelled.FilesUpdated = result.FilesUpdated
			cancelled.FilesSkipped = result.FilesSkipped
			cancelled.TotalFilesFound = total
			cancelled.Errors = result.Errors
			return cancelled
		default:
		}

		seen[file.ID] = true

		if recordID, ok := known[file.ID]; ok {
			if opts.SkipExisting {
				result.FilesSkipped++
			} else {
				if err := s.mediaRepo.UpdateFileInfo(ctx, recordID, file.Size, file.Width, file.Height); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("Failed to update %s: %v", file.Name, err))
				} else {
					result.FilesUpdated++
				}
			}
		} else {
			record, err := models.NewMediaRecord(file.Name, file.Path, file.Size, file.MediaType, file.CreatedTime)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %s: %v", file.Name, err))
				continue
			}
			pid := providerID
			fid := file.ID
			record.ProviderID = &pid
			record.ProviderFileID = &fid
			record.FileHash = file.Hash
			record.Width = file.Width
			record.Height = file.Height

			pending = append(pending, record)
			result.FilesAdded++
		}

		if (i+1)%syncFlushInterval == 0 {
			flush(ctx)
			s.publishStatus(&models.SyncStatus{
				ProviderID:       providerID,
				InProgress:       true,
				Progress:         progressPercent(i+1, total),
				CurrentOperation: fmt.Sprintf("Processing %d files...", total),
				FilesProcessed:   i + 1,
				TotalFiles:       total,
				StartedAt:        startedAt,
			})
		}
	}
	flush(ctx)

	if opts.RemoveDeleted {
		s.publishStatus(&models.SyncStatus{
			ProviderID:       providerID,
			InProgress:       true,
			Progress:         90,
			CurrentOperation: "Checking for deleted files...",
			FilesProcessed:   total,
			TotalFiles:       total,
			StartedAt:        startedAt,
		})

		for fileID, recordID := range known {
			if seen[fileID] {
				continue
			}
			deleted, err := s.mediaRepo.Delete(ctx, recordID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to remove record %s: %v", recordID, err))
				continue
			}
			if deleted {
				result.FilesRemoved++
			}
		}
	}

	if err := s.providerRepo.UpdateLastSync(ctx, providerID, time.Now().UTC()); err != nil {
		// Bookkeeping only, the pass itself still succeeded
		observability.Warnf("Failed to update last sync time for %s: %v", providerID, err)
	}

	result.Success = true
	result.CompletedAt = time.Now().UTC()
	result.Message = fmt.Sprintf("Sync complete: %d added, %d updated, %d removed, %d skipped",
		result.FilesAdded, result.FilesUpdated, result.FilesRemoved, result.FilesSkipped)

	observability.Infof("Sync for provider %s finished: %s (%d errors)", providerID, result.Message, len(result.Errors))

	return result
}

// SyncAllProviders syncs every enabled provider sequentially. One provider's
// failure does not stop the rest; a cancelled context does.
func (s *SyncService) SyncAllProviders(ctx context.Context, opts models.SyncOptions) []*models.SyncResult {
	records, err := s.providerRepo.GetAll(ctx, true)
	if err != nil {
		observability.Errorf("Failed to list providers for sync-all: %v", err)
		return []*models.SyncResult{}
	}

	results := make([]*models.SyncResult, 0, len(records))
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.SyncProvider(ctx, record.ID, opts))
	}

	return results
}

// GetSyncStatus returns the live status for a provider. Providers that never
// synced report a quiescent status rather than an error.
func (s *SyncService) GetSyncStatus(providerID string) *models.SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	if status, ok := s.statuses[providerID]; ok {
		copied := *status
		return &copied
	}
	return &models.SyncStatus{ProviderID: providerID, InProgress: false}
}

// CancelSync requests cancellation of a running sync. Returns false when no
// sync is running for the provider.
func (s *SyncService) CancelSync(providerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.active[providerID]
	if !ok {
		return false
	}
	active.cancel()
	return true
}

// ScanProvider previews what a sync would import without writing anything.
// It does not take the per-provider guard. A missing provider returns
// (nil, nil).
func (s *SyncService) ScanProvider(ctx context.Context, providerID string, opts models.SyncOptions) (*models.ScanResult, error) {
	const sampleSize = 10

	provider, err := s.registry.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	listed, err := provider.ListFiles(ctx, opts.FolderID, opts.Recursive)
	if err != nil {
		return nil, err
	}

	known, err := s.mediaRepo.GetProviderFileIDs(ctx, providerID)
	if err != nil {
		return nil, err
	}

	scan := &models.ScanResult{
		ProviderID: providerID,
		Sample:     []models.RemoteFile{},
		ScannedAt:  time.Now().UTC(),
	}

	for _, file := range listed {
		if file.IsFolder {
			continue
		}
		scan.TotalFilesFound++

		if _, ok := known[file.ID]; ok {
			scan.KnownFiles++
			continue
		}

		scan.NewFiles++
		scan.NewFilesSize += file.Size
		if len(scan.Sample) < sampleSize {
			scan.Sample = append(scan.Sample, file)
		}
	}

	return scan, nil
}

// publishStatus stores the status and fans it out to the notifier
func (s *SyncService) publishStatus(status *models.SyncStatus) {
	s.statusMu.Lock()
	s.statuses[status.ProviderID] = status
	s.statusMu.Unlock()

	if s.notifier != nil {
		s.notifier.PublishSyncStatus(status)
	}
}

// progressPercent maps file progress onto the 10-90 band. The edges are
// reserved for the scan and removal phases.
func progressPercent(processed, total int) int {
	if total <= 0 {
		return 90
	}
	p := 10 + processed*80/total
	if p > 90 {
		p = 90
	}
	return p
}
