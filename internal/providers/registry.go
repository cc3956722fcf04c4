package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/observability"
	"github.com/photolib/server/internal/repository"
)

// Registry resolves provider identifiers to initialized instances. Instances
// are cached; concurrent GetProvider calls for the same identifier construct
// a single instance via a per-ID lock table.
type Registry struct {
	providerRepo repository.ProviderRepo
	mediaRepo    repository.MediaRepo
	contentStore ContentStore

	defaultLocalBasePath string

	mu        sync.Mutex
	instances map[string]StorageProvider
	locks     map[string]*sync.Mutex
}

// NewRegistry creates a new provider Registry
func NewRegistry(providerRepo repository.ProviderRepo, mediaRepo repository.MediaRepo, contentStore ContentStore, defaultLocalBasePath string) *Registry {
	return &Registry{
		providerRepo:         providerRepo,
		mediaRepo:            mediaRepo,
		contentStore:         contentStore,
		defaultLocalBasePath: defaultLocalBasePath,
		instances:            make(map[string]StorageProvider),
		locks:                make(map[string]*sync.Mutex),
	}
}

// GetProvider returns a cached initialized instance, constructing one from
// the persisted record when needed. Absent or disabled records return
// (nil, nil).
func (r *Registry) GetProvider(ctx context.Context, id string) (StorageProvider, error) {
	r.mu.Lock()
	if p, ok := r.instances[id]; ok {
		r.mu.Unlock()
		return p, nil
	}
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	r.mu.Unlock()

	// Serialize construction per identifier
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	if p, ok := r.instances[id]; ok {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	record, err := r.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil || !record.Enabled {
		return nil, nil
	}

	p, err := r.CreateProvider(record.Type)
	if err != nil {
		return nil, err
	}
	p.Initialize(record.ID, record.DisplayName, record.Config)

	r.mu.Lock()
	r.instances[id] = p
	r.mu.Unlock()

	return p, nil
}

// GetAllProviders returns initialized instances for every enabled provider
func (r *Registry) GetAllProviders(ctx context.Context) ([]StorageProvider, error) {
	records, err := r.providerRepo.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}

	instances := []StorageProvider{}
	for _, record := range records {
		p, err := r.GetProvider(ctx, record.ID)
		if err != nil {
			observability.Warnf("Skipping provider %s: %v", record.ID, err)
			continue
		}
		if p != nil {
			instances = append(instances, p)
		}
	}

	return instances, nil
}

// GetProvidersByType returns initialized instances of the given kind
func (r *Registry) GetProvidersByType(ctx context.Context, providerType models.ProviderType) ([]StorageProvider, error) {
	all, err := r.GetAllProviders(ctx)
	if err != nil {
		return nil, err
	}

	filtered := []StorageProvider{}
	for _, p := range all {
		if p.Type() == providerType {
			filtered = append(filtered, p)
		}
	}

	return filtered, nil
}

// CreateProvider constructs an uninitialized instance for validation-only
// use. It is never persisted or cached.
func (r *Registry) CreateProvider(providerType models.ProviderType) (StorageProvider, error) {
	switch providerType {
	case models.ProviderTypeLocal:
		return NewLocalProvider(), nil
	case models.ProviderTypeRemotePicker:
		return NewPickerProvider(r.mediaRepo, r.contentStore), nil
	case models.ProviderTypeRemoteDrive:
		return nil, models.ErrNotImplemented
	default:
		return nil, fmt.Errorf("unknown provider type: %q", providerType)
	}
}

// GetOrCreateDefaultLocalProvider returns the configured Local provider,
// creating and persisting one rooted at the default base path when none
// exists. Date organization and change watching are enabled by default.
func (r *Registry) GetOrCreateDefaultLocalProvider(ctx context.Context) (StorageProvider, error) {
	records, err := r.providerRepo.GetByType(ctx, models.ProviderTypeLocal)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		p, err := r.GetProvider(ctx, records[0].ID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("local provider %s is disabled", records[0].ID)
		}
		return p, nil
	}

	cfg, err := json.Marshal(models.LocalProviderConfig{
		BasePath:        r.defaultLocalBasePath,
		OrganizeByDate:  true,
		WatchForChanges: true,
	})
	if err != nil {
		return nil, err
	}

	record := models.NewStorageProviderRecord(models.ProviderTypeLocal, "Local Storage", string(cfg))
	if err := r.providerRepo.Add(ctx, record); err != nil {
		return nil, err
	}

	observability.Infof("Created default local provider %s at %s", record.ID, r.defaultLocalBasePath)

	return r.GetProvider(ctx, record.ID)
}

// ClearCache drops all cached instances. In-flight GetProvider calls simply
// construct fresh instances afterward.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]StorageProvider)
}
