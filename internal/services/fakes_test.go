package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/providers"
)

// fakeMediaRepo is an in-memory MediaRepo for tests
type fakeMediaRepo struct {
	mu      sync.Mutex
	records map[string]*models.MediaRecord

	addErr    error
	updateErr error
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{records: make(map[string]*models.MediaRecord)}
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.records[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeMediaRepo) GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.records {
		if m.ProviderID != nil && *m.ProviderID == providerID && m.ProviderFileID != nil && *m.ProviderFileID == fileID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeMediaRepo) GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, m := range f.records {
		if m.ProviderID != nil && *m.ProviderID == providerID && m.ProviderFileID != nil {
			out[*m.ProviderFileID] = m.ID
		}
	}
	return out, nil
}

func (f *fakeMediaRepo) GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.MediaRecord
	for _, m := range f.records {
		if m.ProviderID != nil && *m.ProviderID == providerID {
			copied := *m
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if skip >= len(matched) {
		return []*models.MediaRecord{}, nil
	}
	end := skip + take
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

func (f *fakeMediaRepo) GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*models.MediaRecord
	for _, m := range f.records {
		copied := *m
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if skip >= len(all) {
		return []*models.MediaRecord{}, nil
	}
	end := skip + take
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (f *fakeMediaRepo) GetCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

func (f *fakeMediaRepo) Add(ctx context.Context, record *models.MediaRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.ID] = &copied
	return nil
}

// AddBatch rejects writes on a cancelled context the way database/sql does
func (f *fakeMediaRepo) AddBatch(ctx context.Context, records []*models.MediaRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range records {
		copied := *record
		f.records[record.ID] = &copied
	}
	return nil
}

func (f *fakeMediaRepo) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.records[id]; ok {
		m.FileSize = size
		m.Width = width
		m.Height = height
	}
	return nil
}

func (f *fakeMediaRepo) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeMediaRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeProviderRepo is an in-memory ProviderRepo for tests
type fakeProviderRepo struct {
	mu      sync.Mutex
	records map[string]*models.StorageProviderRecord
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{records: make(map[string]*models.StorageProviderRecord)}
}

func (f *fakeProviderRepo) GetByID(ctx context.Context, id string) (*models.StorageProviderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeProviderRepo) GetAll(ctx context.Context, enabledOnly bool) ([]*models.StorageProviderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StorageProviderRecord
	for _, r := range f.records {
		if enabledOnly && !r.Enabled {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProviderRepo) GetByType(ctx context.Context, providerType models.ProviderType) ([]*models.StorageProviderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.StorageProviderRecord
	for _, r := range f.records {
		if r.Type == providerType {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeProviderRepo) Add(ctx context.Context, record *models.StorageProviderRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.ID] = &copied
	return nil
}

func (f *fakeProviderRepo) Update(ctx context.Context, record *models.StorageProviderRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *record
	f.records[record.ID] = &copied
	return nil
}

func (f *fakeProviderRepo) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		r.LastSyncAt = &at
	}
	return nil
}

func (f *fakeProviderRepo) Delete(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

func (f *fakeProviderRepo) lastSyncAt(id string) *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		return r.LastSyncAt
	}
	return nil
}

// fakeCacheRepo is an in-memory CacheRepo for tests
type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*models.CacheEntry)}
}

func (f *fakeCacheRepo) GetByHash(ctx context.Context, hash string) (*models.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[strings.ToLower(hash)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeCacheRepo) Add(ctx context.Context, entry *models.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entry.Hash]; ok {
		return fmt.Errorf("duplicate hash %s", entry.Hash)
	}
	copied := *entry
	f.entries[entry.Hash] = &copied
	return nil
}

func (f *fakeCacheRepo) Touch(ctx context.Context, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[strings.ToLower(hash)]; ok {
		e.LastAccessedAt = at
		e.AccessCount++
	}
	return nil
}

func (f *fakeCacheRepo) SetProviderFileID(ctx context.Context, hash, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[strings.ToLower(hash)]; ok && e.ProviderFileID == nil {
		e.ProviderFileID = &fileID
	}
	return nil
}

func (f *fakeCacheRepo) TotalSize(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, e := range f.entries {
		total += e.FileSize
	}
	return total, nil
}

func (f *fakeCacheRepo) GetCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeCacheRepo) sortedByAccess(desc bool) []*models.CacheEntry {
	var out []*models.CacheEntry
	for _, e := range f.entries {
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
		}
		return out[i].LastAccessedAt.Before(out[j].LastAccessedAt)
	})
	return out
}

func (f *fakeCacheRepo) GetLeastRecentlyUsed(ctx context.Context, limit int) ([]*models.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sortedByAccess(false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCacheRepo) ListPaged(ctx context.Context, page, pageSize int) ([]*models.CacheEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sortedByAccess(true)
	total := len(out)
	start := (page - 1) * pageSize
	if start >= total {
		return []*models.CacheEntry{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (f *fakeCacheRepo) GetByProvider(ctx context.Context, providerID string) ([]*models.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CacheEntry
	for _, e := range f.entries {
		if e.ProviderID == providerID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(hash)
	if _, ok := f.entries[key]; !ok {
		return false, nil
	}
	delete(f.entries, key)
	return true, nil
}

func (f *fakeCacheRepo) DeleteByProvider(ctx context.Context, providerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for hash, e := range f.entries {
		if e.ProviderID == providerID {
			delete(f.entries, hash)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeCacheRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fakeResolver maps provider IDs straight to instances
type fakeResolver struct {
	providers map[string]providers.StorageProvider
}

func (f *fakeResolver) GetProvider(ctx context.Context, id string) (providers.StorageProvider, error) {
	return f.providers[id], nil
}

// fakeProvider is a scriptable StorageProvider for sync tests
type fakeProvider struct {
	id      string
	files   []models.RemoteFile
	listErr error

	// listStarted is closed when ListFiles begins; listRelease gates its return
	listStarted chan struct{}
	listRelease chan struct{}
}

func (p *fakeProvider) ID() string                { return p.id }
func (p *fakeProvider) Type() models.ProviderType { return models.ProviderTypeLocal }
func (p *fakeProvider) DisplayName() string       { return "Fake " + p.id }
func (p *fakeProvider) SupportsUpload() bool      { return false }
func (p *fakeProvider) SupportsWatch() bool       { return false }

func (p *fakeProvider) Initialize(id, displayName, configBlob string) { p.id = id }

func (p *fakeProvider) ListFiles(ctx context.Context, folderID string, recursive bool) ([]models.RemoteFile, error) {
	if p.listStarted != nil {
		close(p.listStarted)
		p.listStarted = nil
	}
	if p.listRelease != nil {
		select {
		case <-p.listRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.files, nil
}

func (p *fakeProvider) ReadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return nil, models.ErrFileNotFound
}

func (p *fakeProvider) WriteFile(ctx context.Context, filename string, r io.Reader, contentType string) (*models.WriteResult, error) {
	return nil, models.ErrNotSupported
}

func (p *fakeProvider) DeleteFile(ctx context.Context, fileID string) (bool, error) {
	return false, nil
}

func (p *fakeProvider) FileExists(ctx context.Context, fileID string) bool { return false }
func (p *fakeProvider) TestConnection(ctx context.Context) bool            { return true }
