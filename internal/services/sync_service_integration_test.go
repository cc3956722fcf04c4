package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/providers"
	"github.com/photolib/server/internal/repository"
)

// cancellingMediaRepo cancels the sync context after a known file is updated,
// simulating a caller that goes away mid-pass
type cancellingMediaRepo struct {
	repository.MediaRepo
	cancel context.CancelFunc
}

func (r *cancellingMediaRepo) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	err := r.MediaRepo.UpdateFileInfo(ctx, id, size, width, height)
	r.cancel()
	return err
}

func newSQLiteRepos(t *testing.T) (*repository.MediaRepository, *repository.ProviderRepository, *repository.CacheRepository) {
	t.Helper()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewMediaRepository(db), repository.NewProviderRepository(db), repository.NewCacheRepository(db)
}

func TestSyncProvider_CancellationKeepsCommittedWork(t *testing.T) {
	mediaRepo, providerRepo, _ := newSQLiteRepos(t)

	record := models.NewStorageProviderRecord(models.ProviderTypeLocal, "Local", "{}")
	require.NoError(t, providerRepo.Add(context.Background(), record))

	// A file from an earlier pass; updating it triggers the cancellation
	knownID := "known.jpg"
	known, err := models.NewMediaRecord(knownID, knownID, 50, models.MediaTypePhoto, time.Now().UTC())
	require.NoError(t, err)
	known.ProviderID = &record.ID
	known.ProviderFileID = &knownID
	require.NoError(t, mediaRepo.Add(context.Background(), known))

	provider := &fakeProvider{id: record.ID, files: []models.RemoteFile{
		remoteFile("a.jpg", "a.jpg", 100),
		remoteFile("b.jpg", "b.jpg", 100),
		remoteFile(knownID, knownID, 60),
		remoteFile("c.jpg", "c.jpg", 100),
	}}
	resolver := &fakeResolver{providers: map[string]providers.StorageProvider{record.ID: provider}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewSyncService(resolver, &cancellingMediaRepo{MediaRepo: mediaRepo, cancel: cancel}, providerRepo, nil, nil)

	opts := models.DefaultSyncOptions()
	opts.SkipExisting = false

	result := svc.SyncProvider(ctx, record.ID, opts)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "cancelled")
	assert.Equal(t, 2, result.FilesAdded)
	assert.Equal(t, 1, result.FilesUpdated)
	assert.Empty(t, result.Errors)

	// The records pending at the cancellation point landed in the store
	persisted, err := mediaRepo.GetProviderFileIDs(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Contains(t, persisted, "a.jpg")
	assert.Contains(t, persisted, "b.jpg")
	assert.NotContains(t, persisted, "c.jpg")
}

func TestSyncProvider_LocalProviderEndToEnd(t *testing.T) {
	ctx := context.Background()
	mediaRepo, providerRepo, cacheRepo := newSQLiteRepos(t)

	photoDir := t.TempDir()
	for _, name := range []string{"one.jpg", "two.png", "three.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(photoDir, name), []byte("bytes of "+name), 0644))
	}

	contentCache := NewContentCache(cacheRepo, NewHashService(), t.TempDir(), 0, nil)
	registry := providers.NewRegistry(providerRepo, mediaRepo, contentCache, photoDir)

	local, err := registry.GetOrCreateDefaultLocalProvider(ctx)
	require.NoError(t, err)

	svc := NewSyncService(registry, mediaRepo, providerRepo, nil, nil)

	first := svc.SyncProvider(ctx, local.ID(), models.DefaultSyncOptions())
	assert.True(t, first.Success)
	assert.Equal(t, 3, first.FilesAdded)
	assert.Equal(t, 0, first.FilesUpdated)
	assert.Equal(t, 0, first.FilesRemoved)
	assert.Equal(t, 3, first.TotalFilesFound)
	assert.Empty(t, first.Errors)

	count, err := mediaRepo.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// No source changes: the second pass adds nothing
	second := svc.SyncProvider(ctx, local.ID(), models.DefaultSyncOptions())
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.FilesAdded)
	assert.Equal(t, 3, second.FilesSkipped)

	// A file deleted at the source is reaped when asked
	require.NoError(t, os.Remove(filepath.Join(photoDir, "two.png")))
	opts := models.DefaultSyncOptions()
	opts.RemoveDeleted = true

	third := svc.SyncProvider(ctx, local.ID(), opts)
	assert.True(t, third.Success)
	assert.Equal(t, 1, third.FilesRemoved)

	count, err = mediaRepo.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
