package providers

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolib/server/internal/models"
)

// memMediaRepo is an in-memory MediaRepo holding imported picker records
type memMediaRepo struct {
	records []*models.MediaRecord
}

func (m *memMediaRepo) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memMediaRepo) GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error) {
	for _, r := range m.records {
		if r.ProviderID != nil && *r.ProviderID == providerID &&
			r.ProviderFileID != nil && *r.ProviderFileID == fileID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memMediaRepo) GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error) {
	known := make(map[string]string)
	for _, r := range m.records {
		if r.ProviderID != nil && *r.ProviderID == providerID && r.ProviderFileID != nil {
			known[*r.ProviderFileID] = r.ID
		}
	}
	return known, nil
}

func (m *memMediaRepo) GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error) {
	var owned []*models.MediaRecord
	for _, r := range m.records {
		if r.ProviderID != nil && *r.ProviderID == providerID {
			owned = append(owned, r)
		}
	}
	if skip >= len(owned) {
		return []*models.MediaRecord{}, nil
	}
	end := skip + take
	if end > len(owned) {
		end = len(owned)
	}
	return owned[skip:end], nil
}

func (m *memMediaRepo) GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error) {
	return m.records, nil
}

func (m *memMediaRepo) GetCount(ctx context.Context) (int, error) { return len(m.records), nil }

func (m *memMediaRepo) Add(ctx context.Context, r *models.MediaRecord) error {
	m.records = append(m.records, r)
	return nil
}

func (m *memMediaRepo) AddBatch(ctx context.Context, records []*models.MediaRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *memMediaRepo) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	return nil
}

func (m *memMediaRepo) Delete(ctx context.Context, id string) (bool, error) { return false, nil }

// memContentStore serves byte slices keyed by hash
type memContentStore struct {
	content map[string][]byte
}

func (m *memContentStore) GetStream(ctx context.Context, hash string) (io.ReadCloser, error) {
	b, ok := m.content[hash]
	if !ok {
		return nil, nil
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func newTestPicker(t *testing.T) (*PickerProvider, *memMediaRepo, *memContentStore) {
	t.Helper()
	repo := &memMediaRepo{}
	store := &memContentStore{content: make(map[string][]byte)}

	p := NewPickerProvider(repo, store)
	p.Initialize("picker-1", "Imported Photos", "")
	return p, repo, store
}

func importRecord(t *testing.T, repo *memMediaRepo, providerID, fileID, hash string) *models.MediaRecord {
	t.Helper()
	record, err := models.NewMediaRecord(fileID+".jpg", fileID+".jpg", 100, models.MediaTypePhoto, time.Now().UTC())
	require.NoError(t, err)
	record.ProviderID = &providerID
	if fileID != "" {
		record.ProviderFileID = &fileID
	}
	record.FileHash = hash
	require.NoError(t, repo.Add(context.Background(), record))
	return record
}

func TestPickerProvider_Capabilities(t *testing.T) {
	p, _, _ := newTestPicker(t)

	assert.Equal(t, models.ProviderTypeRemotePicker, p.Type())
	assert.False(t, p.SupportsUpload())
	assert.False(t, p.SupportsWatch())
}

func TestPickerProvider_ListFiles(t *testing.T) {
	ctx := context.Background()
	p, repo, _ := newTestPicker(t)

	importRecord(t, repo, "picker-1", "remote-1", "aa")
	importRecord(t, repo, "picker-1", "remote-2", "bb")
	importRecord(t, repo, "someone-else", "remote-3", "cc")

	files, err := p.ListFiles(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, files, 2)

	var ids []string
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	assert.ElementsMatch(t, []string{"remote-1", "remote-2"}, ids)
}

func TestPickerProvider_ReadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("streams cached bytes", func(t *testing.T) {
		p, repo, store := newTestPicker(t)
		importRecord(t, repo, "picker-1", "remote-1", "deadbeef")
		store.content["deadbeef"] = []byte("imported bytes")

		stream, err := p.ReadFile(ctx, "remote-1")
		require.NoError(t, err)
		defer stream.Close()

		got, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, []byte("imported bytes"), got)
	})

	t.Run("record without a hash is not readable", func(t *testing.T) {
		p, repo, _ := newTestPicker(t)
		importRecord(t, repo, "picker-1", "remote-1", "")

		_, err := p.ReadFile(ctx, "remote-1")
		assert.ErrorIs(t, err, models.ErrFileNotFound)
	})

	t.Run("hash absent from local storage is not readable", func(t *testing.T) {
		p, repo, _ := newTestPicker(t)
		importRecord(t, repo, "picker-1", "remote-1", "deadbeef")

		_, err := p.ReadFile(ctx, "remote-1")
		assert.ErrorIs(t, err, models.ErrFileNotFound)
	})

	t.Run("falls back to lookup by record ID", func(t *testing.T) {
		p, repo, store := newTestPicker(t)
		record := importRecord(t, repo, "picker-1", "", "cafef00d")
		store.content["cafef00d"] = []byte("legacy import")

		stream, err := p.ReadFile(ctx, record.ID)
		require.NoError(t, err)
		defer stream.Close()

		got, err := io.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, []byte("legacy import"), got)
	})

	t.Run("another provider's record is invisible", func(t *testing.T) {
		p, repo, store := newTestPicker(t)
		record := importRecord(t, repo, "someone-else", "", "cafef00d")
		store.content["cafef00d"] = []byte("not yours")

		_, err := p.ReadFile(ctx, record.ID)
		assert.ErrorIs(t, err, models.ErrFileNotFound)
	})
}

func TestPickerProvider_ReadOnly(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPicker(t)

	_, err := p.WriteFile(ctx, "new.jpg", bytes.NewReader([]byte("x")), "image/jpeg")
	assert.ErrorIs(t, err, models.ErrNotSupported)

	_, err = p.DeleteFile(ctx, "remote-1")
	assert.ErrorIs(t, err, models.ErrNotSupported)
}

func TestPickerProvider_FileExists(t *testing.T) {
	ctx := context.Background()
	p, repo, store := newTestPicker(t)

	importRecord(t, repo, "picker-1", "readable", "aa")
	store.content["aa"] = []byte("x")
	importRecord(t, repo, "picker-1", "hashless", "")

	assert.True(t, p.FileExists(ctx, "readable"))
	assert.False(t, p.FileExists(ctx, "hashless"))
	assert.False(t, p.FileExists(ctx, "never-imported"))
}
