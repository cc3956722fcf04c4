package providers

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolib/server/internal/models"
)

// stubProviderRepo is an in-memory ProviderRepo for registry tests
type stubProviderRepo struct {
	mu      sync.Mutex
	records map[string]*models.StorageProviderRecord
}

func newStubProviderRepo() *stubProviderRepo {
	return &stubProviderRepo{records: make(map[string]*models.StorageProviderRecord)}
}

func (s *stubProviderRepo) GetByID(ctx context.Context, id string) (*models.StorageProviderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (s *stubProviderRepo) GetAll(ctx context.Context, enabledOnly bool) ([]*models.StorageProviderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StorageProviderRecord
	for _, r := range s.records {
		if enabledOnly && !r.Enabled {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *stubProviderRepo) GetByType(ctx context.Context, providerType models.ProviderType) ([]*models.StorageProviderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StorageProviderRecord
	for _, r := range s.records {
		if r.Type == providerType {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *stubProviderRepo) Add(ctx context.Context, record *models.StorageProviderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *stubProviderRepo) Update(ctx context.Context, record *models.StorageProviderRecord) error {
	return s.Add(ctx, record)
}

func (s *stubProviderRepo) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (s *stubProviderRepo) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// stubMediaRepo satisfies the MediaRepo surface the picker provider touches
type stubMediaRepo struct{}

func (stubMediaRepo) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	return nil, nil
}
func (stubMediaRepo) GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error) {
	return nil, nil
}
func (stubMediaRepo) GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (stubMediaRepo) GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error) {
	return []*models.MediaRecord{}, nil
}
func (stubMediaRepo) GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error) {
	return []*models.MediaRecord{}, nil
}
func (stubMediaRepo) GetCount(ctx context.Context) (int, error)              { return 0, nil }
func (stubMediaRepo) Add(ctx context.Context, r *models.MediaRecord) error   { return nil }
func (stubMediaRepo) AddBatch(ctx context.Context, r []*models.MediaRecord) error {
	return nil
}
func (stubMediaRepo) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	return nil
}
func (stubMediaRepo) Delete(ctx context.Context, id string) (bool, error) { return false, nil }

// stubContentStore never has content
type stubContentStore struct{}

func (stubContentStore) GetStream(ctx context.Context, hash string) (io.ReadCloser, error) {
	return nil, nil
}

func newTestRegistry(t *testing.T) (*Registry, *stubProviderRepo) {
	t.Helper()
	repo := newStubProviderRepo()
	registry := NewRegistry(repo, stubMediaRepo{}, stubContentStore{}, t.TempDir())
	return registry, repo
}

func addLocalRecord(t *testing.T, repo *stubProviderRepo, enabled bool) *models.StorageProviderRecord {
	t.Helper()
	cfg, err := json.Marshal(models.LocalProviderConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	record := models.NewStorageProviderRecord(models.ProviderTypeLocal, "Local", string(cfg))
	record.Enabled = enabled
	require.NoError(t, repo.Add(context.Background(), record))
	return record
}

func TestRegistry_GetProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown ID returns nil without error", func(t *testing.T) {
		registry, _ := newTestRegistry(t)

		p, err := registry.GetProvider(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("disabled record returns nil without error", func(t *testing.T) {
		registry, repo := newTestRegistry(t)
		record := addLocalRecord(t, repo, false)

		p, err := registry.GetProvider(ctx, record.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("constructs and caches instances", func(t *testing.T) {
		registry, repo := newTestRegistry(t)
		record := addLocalRecord(t, repo, true)

		first, err := registry.GetProvider(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, record.ID, first.ID())

		second, err := registry.GetProvider(ctx, record.ID)
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("concurrent calls share one instance", func(t *testing.T) {
		registry, repo := newTestRegistry(t)
		record := addLocalRecord(t, repo, true)

		const n = 8
		results := make([]StorageProvider, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, err := registry.GetProvider(ctx, record.ID)
				require.NoError(t, err)
				results[i] = p
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			assert.Same(t, results[0], results[i])
		}
	})

	t.Run("ClearCache forces a fresh instance", func(t *testing.T) {
		registry, repo := newTestRegistry(t)
		record := addLocalRecord(t, repo, true)

		first, err := registry.GetProvider(ctx, record.ID)
		require.NoError(t, err)

		registry.ClearCache()

		second, err := registry.GetProvider(ctx, record.ID)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})
}

func TestRegistry_CreateProvider(t *testing.T) {
	registry, _ := newTestRegistry(t)

	t.Run("local", func(t *testing.T) {
		p, err := registry.CreateProvider(models.ProviderTypeLocal)
		require.NoError(t, err)
		assert.IsType(t, &LocalProvider{}, p)
	})

	t.Run("remote picker", func(t *testing.T) {
		p, err := registry.CreateProvider(models.ProviderTypeRemotePicker)
		require.NoError(t, err)
		assert.IsType(t, &PickerProvider{}, p)
	})

	t.Run("remote drive is not implemented", func(t *testing.T) {
		_, err := registry.CreateProvider(models.ProviderTypeRemoteDrive)
		assert.ErrorIs(t, err, models.ErrNotImplemented)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := registry.CreateProvider(models.ProviderType("carrier_pigeon"))
		assert.Error(t, err)
	})
}

func TestRegistry_GetAllProviders(t *testing.T) {
	ctx := context.Background()

	registry, repo := newTestRegistry(t)
	enabled := addLocalRecord(t, repo, true)
	addLocalRecord(t, repo, false)

	all, err := registry.GetAllProviders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, enabled.ID, all[0].ID())
}

func TestRegistry_GetOrCreateDefaultLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and persists one when none exists", func(t *testing.T) {
		registry, repo := newTestRegistry(t)

		p, err := registry.GetOrCreateDefaultLocalProvider(ctx)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, models.ProviderTypeLocal, p.Type())

		records, err := repo.GetByType(ctx, models.ProviderTypeLocal)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Local Storage", records[0].DisplayName)
	})

	t.Run("reuses the existing local provider", func(t *testing.T) {
		registry, repo := newTestRegistry(t)
		record := addLocalRecord(t, repo, true)

		p, err := registry.GetOrCreateDefaultLocalProvider(ctx)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, record.ID, p.ID())

		records, err := repo.GetByType(ctx, models.ProviderTypeLocal)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}
