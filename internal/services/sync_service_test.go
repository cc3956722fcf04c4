package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/providers"
)

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []*models.SyncStatus
}

func (n *recordingNotifier) PublishSyncStatus(status *models.SyncStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	copied := *status
	n.statuses = append(n.statuses, &copied)
}

func (n *recordingNotifier) all() []*models.SyncStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.SyncStatus{}, n.statuses...)
}

func remoteFile(id, name string, size int64) models.RemoteFile {
	return models.RemoteFile{
		ID:           id,
		Name:         name,
		Path:         "photos/" + name,
		Size:         size,
		MediaType:    models.MediaTypePhoto,
		CreatedTime:  time.Now().UTC(),
		ModifiedTime: time.Now().UTC(),
	}
}

func newTestSync(provider providers.StorageProvider) (*SyncService, *fakeMediaRepo, *fakeProviderRepo, *recordingNotifier) {
	mediaRepo := newFakeMediaRepo()
	providerRepo := newFakeProviderRepo()
	notifier := &recordingNotifier{}

	record := models.NewStorageProviderRecord(models.ProviderTypeLocal, "Test", "")
	record.ID = "prov-1"
	providerRepo.Add(context.Background(), record)

	resolver := &fakeResolver{providers: map[string]providers.StorageProvider{}}
	if provider != nil {
		resolver.providers["prov-1"] = provider
	}

	svc := NewSyncService(resolver, mediaRepo, providerRepo, notifier, nil)
	return svc, mediaRepo, providerRepo, notifier
}

func TestSyncService_SyncProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("imports new files", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
			remoteFile("f2", "b.jpg", 200),
			remoteFile("f3", "c.jpg", 300),
		}}
		svc, mediaRepo, providerRepo, _ := newTestSync(provider)

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())

		assert.True(t, result.Success)
		assert.Equal(t, 3, result.FilesAdded)
		assert.Equal(t, 3, result.TotalFilesFound)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 3, mediaRepo.count())
		assert.NotNil(t, providerRepo.lastSyncAt("prov-1"))

		// Imported records carry the provider linkage
		record, err := mediaRepo.GetByProviderFileID(ctx, "prov-1", "f1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "a.jpg", record.Filename)
	})

	t.Run("second run skips known files", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
			remoteFile("f2", "b.jpg", 200),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		first := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		require.True(t, first.Success)

		second := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.True(t, second.Success)
		assert.Equal(t, 0, second.FilesAdded)
		assert.Equal(t, 2, second.FilesSkipped)
		assert.Equal(t, 2, mediaRepo.count())
	})

	t.Run("refreshes known files when skipExisting is off", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		require.True(t, svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions()).Success)

		provider.files[0].Size = 999
		opts := models.DefaultSyncOptions()
		opts.SkipExisting = false

		result := svc.SyncProvider(ctx, "prov-1", opts)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.FilesUpdated)

		record, err := mediaRepo.GetByProviderFileID(ctx, "prov-1", "f1")
		require.NoError(t, err)
		assert.Equal(t, int64(999), record.FileSize)
	})

	t.Run("removes records for deleted files when requested", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
			remoteFile("f2", "b.jpg", 200),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		require.True(t, svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions()).Success)
		require.Equal(t, 2, mediaRepo.count())

		// f2 disappears at the source
		provider.files = provider.files[:1]
		opts := models.DefaultSyncOptions()
		opts.RemoveDeleted = true

		result := svc.SyncProvider(ctx, "prov-1", opts)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.FilesRemoved)
		assert.Equal(t, 1, mediaRepo.count())

		gone, err := mediaRepo.GetByProviderFileID(ctx, "prov-1", "f2")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("keeps records for deleted files by default", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		require.True(t, svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions()).Success)
		provider.files = nil

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.True(t, result.Success)
		assert.Equal(t, 0, result.FilesRemoved)
		assert.Equal(t, 1, mediaRepo.count())
	})

	t.Run("a bad file does not sink the pass", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
			remoteFile("f2", "", 200), // empty name fails record validation
			remoteFile("f3", "c.jpg", 300),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())

		assert.True(t, result.Success)
		assert.Equal(t, 2, result.FilesAdded)
		assert.Len(t, result.Errors, 1)
		assert.Equal(t, 2, mediaRepo.count())
	})

	t.Run("folders are not imported", func(t *testing.T) {
		folder := remoteFile("d1", "albums", 0)
		folder.IsFolder = true
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			folder,
			remoteFile("f1", "a.jpg", 100),
		}}
		svc, mediaRepo, _, _ := newTestSync(provider)

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())

		assert.True(t, result.Success)
		assert.Equal(t, 1, result.TotalFilesFound)
		assert.Equal(t, 1, mediaRepo.count())
	})

	t.Run("unknown provider fails the pass", func(t *testing.T) {
		svc, _, _, _ := newTestSync(nil)

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "not found")
	})

	t.Run("listing failure fails the pass", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", listErr: fmt.Errorf("disk on fire")}
		svc, _, _, _ := newTestSync(provider)

		result := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "disk on fire")
	})
}

func TestSyncService_ConcurrencyGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a second sync for the same provider", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		provider := &fakeProvider{id: "prov-1", listStarted: started, listRelease: release}
		svc, _, _, _ := newTestSync(provider)

		done := make(chan *models.SyncResult, 1)
		go func() {
			done <- svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		}()
		<-started

		second := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.False(t, second.Success)
		assert.Contains(t, second.Message, "already in progress")

		close(release)
		first := <-done
		assert.True(t, first.Success)

		// The guard is released once the first pass finishes
		third := svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		assert.True(t, third.Success)
	})

	t.Run("cancel stops a running sync and releases the guard", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		provider := &fakeProvider{id: "prov-1", listStarted: started, listRelease: release}
		svc, _, _, _ := newTestSync(provider)

		done := make(chan *models.SyncResult, 1)
		go func() {
			done <- svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions())
		}()
		<-started

		assert.True(t, svc.CancelSync("prov-1"))

		result := <-done
		assert.False(t, result.Success)

		// Nothing left to cancel
		assert.False(t, svc.CancelSync("prov-1"))
	})

	t.Run("pre-cancelled context fails fast without writing", func(t *testing.T) {
		files := make([]models.RemoteFile, 30)
		for i := range files {
			files[i] = remoteFile(fmt.Sprintf("f%d", i), fmt.Sprintf("p%d.jpg", i), 10)
		}
		provider := &fakeProvider{id: "prov-1", files: files}
		svc, mediaRepo, _, _ := newTestSync(provider)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		result := svc.SyncProvider(cancelled, "prov-1", models.DefaultSyncOptions())
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "cancelled")
		assert.Equal(t, 0, result.FilesAdded)
		assert.Equal(t, 0, mediaRepo.count())
	})
}

func TestSyncService_Status(t *testing.T) {
	t.Run("unknown provider reports quiescent status", func(t *testing.T) {
		svc, _, _, _ := newTestSync(nil)

		status := svc.GetSyncStatus("never-synced")
		assert.Equal(t, "never-synced", status.ProviderID)
		assert.False(t, status.InProgress)
		assert.Nil(t, status.LastResult)
	})

	t.Run("progress is published and ends with the result", func(t *testing.T) {
		files := make([]models.RemoteFile, 25)
		for i := range files {
			files[i] = remoteFile(fmt.Sprintf("f%d", i), fmt.Sprintf("p%d.jpg", i), 10)
		}
		provider := &fakeProvider{id: "prov-1", files: files}
		svc, _, _, notifier := newTestSync(provider)

		result := svc.SyncProvider(context.Background(), "prov-1", models.DefaultSyncOptions())
		require.True(t, result.Success)

		statuses := notifier.all()
		require.NotEmpty(t, statuses)

		final := statuses[len(statuses)-1]
		assert.False(t, final.InProgress)
		require.NotNil(t, final.LastResult)
		assert.Equal(t, 25, final.LastResult.FilesAdded)

		// Mid-pass progress stays inside the file-processing band
		for _, s := range statuses[:len(statuses)-1] {
			assert.True(t, s.InProgress)
			assert.GreaterOrEqual(t, s.Progress, 0)
			assert.LessOrEqual(t, s.Progress, 90)
		}

		status := svc.GetSyncStatus("prov-1")
		assert.False(t, status.InProgress)
		require.NotNil(t, status.LastResult)
	})
}

func TestSyncService_SyncAllProviders(t *testing.T) {
	ctx := context.Background()

	mediaRepo := newFakeMediaRepo()
	providerRepo := newFakeProviderRepo()

	resolver := &fakeResolver{providers: map[string]providers.StorageProvider{}}
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("prov-%d", i)
		record := models.NewStorageProviderRecord(models.ProviderTypeLocal, id, "")
		record.ID = id
		record.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if i == 2 {
			record.Enabled = false
		}
		providerRepo.Add(ctx, record)
		resolver.providers[id] = &fakeProvider{id: id, files: []models.RemoteFile{
			remoteFile(id+"-f1", id+".jpg", 100),
		}}
	}

	svc := NewSyncService(resolver, mediaRepo, providerRepo, nil, nil)

	results := svc.SyncAllProviders(ctx, models.DefaultSyncOptions())

	// Disabled providers are not synced
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, 1, r.FilesAdded)
	}
	assert.Equal(t, 2, mediaRepo.count())
}

func TestSyncService_ScanProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("previews without writing", func(t *testing.T) {
		files := make([]models.RemoteFile, 15)
		for i := range files {
			files[i] = remoteFile(fmt.Sprintf("f%d", i), fmt.Sprintf("p%d.jpg", i), 10)
		}
		provider := &fakeProvider{id: "prov-1", files: files}
		svc, mediaRepo, _, _ := newTestSync(provider)

		scan, err := svc.ScanProvider(ctx, "prov-1", models.DefaultSyncOptions())
		require.NoError(t, err)
		require.NotNil(t, scan)

		assert.Equal(t, 15, scan.TotalFilesFound)
		assert.Equal(t, 15, scan.NewFiles)
		assert.Equal(t, 0, scan.KnownFiles)
		assert.Equal(t, int64(150), scan.NewFilesSize)
		assert.Len(t, scan.Sample, 10)
		assert.Equal(t, 0, mediaRepo.count())
	})

	t.Run("distinguishes known from new", func(t *testing.T) {
		provider := &fakeProvider{id: "prov-1", files: []models.RemoteFile{
			remoteFile("f1", "a.jpg", 100),
			remoteFile("f2", "b.jpg", 200),
		}}
		svc, _, _, _ := newTestSync(provider)

		require.True(t, svc.SyncProvider(ctx, "prov-1", models.DefaultSyncOptions()).Success)
		provider.files = append(provider.files, remoteFile("f3", "c.jpg", 300))

		scan, err := svc.ScanProvider(ctx, "prov-1", models.DefaultSyncOptions())
		require.NoError(t, err)

		assert.Equal(t, 3, scan.TotalFilesFound)
		assert.Equal(t, 2, scan.KnownFiles)
		assert.Equal(t, 1, scan.NewFiles)
		assert.Equal(t, int64(300), scan.NewFilesSize)
	})

	t.Run("unknown provider returns nil", func(t *testing.T) {
		svc, _, _, _ := newTestSync(nil)

		scan, err := svc.ScanProvider(ctx, "prov-1", models.DefaultSyncOptions())
		require.NoError(t, err)
		assert.Nil(t, scan)
	})
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 90, progressPercent(0, 0))
	assert.Equal(t, 10, progressPercent(0, 100))
	assert.Equal(t, 50, progressPercent(50, 100))
	assert.Equal(t, 90, progressPercent(100, 100))
}
