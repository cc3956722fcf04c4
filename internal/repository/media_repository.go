package repository

import (
	"context"
	"database/sql"

	"github.com/photolib/server/internal/models"
)

// MediaRepository handles media metadata persistence on SQLite
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, filename, stored_path, file_hash, file_size, width, height, media_type, date_taken, added_at, provider_id, provider_file_id`

func scanMedia(row interface{ Scan(...interface{}) error }) (*models.MediaRecord, error) {
	var m models.MediaRecord
	err := row.Scan(
		&m.ID,
		&m.Filename,
		&m.StoredPath,
		&m.FileHash,
		&m.FileSize,
		&m.Width,
		&m.Height,
		&m.MediaType,
		&m.DateTaken,
		&m.AddedAt,
		&m.ProviderID,
		&m.ProviderFileID,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a media record by its ID
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = ?`

	record, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetByProviderFileID retrieves a media record by its sync idempotency key
func (r *MediaRepository) GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE provider_id = ? AND provider_file_id = ?`

	record, err := scanMedia(r.db.QueryRowContext(ctx, query, providerID, fileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetProviderFileIDs returns provider-file-id -> record-id for a provider
func (r *MediaRepository) GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error) {
	query := `
		SELECT provider_file_id, id FROM media
		WHERE provider_id = ? AND provider_file_id IS NOT NULL
	`

	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]string)
	for rows.Next() {
		var fileID, id string
		if err := rows.Scan(&fileID, &id); err != nil {
			return nil, err
		}
		known[fileID] = id
	}

	return known, rows.Err()
}

// GetForProvider retrieves a provider's media records with pagination
func (r *MediaRepository) GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media
		WHERE provider_id = ?
		ORDER BY date_taken DESC
		LIMIT ? OFFSET ?
	`

	return r.queryMedia(ctx, query, providerID, take, skip)
}

// GetAll retrieves media records with pagination
func (r *MediaRepository) GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media
		ORDER BY date_taken DESC
		LIMIT ? OFFSET ?
	`

	return r.queryMedia(ctx, query, take, skip)
}

func (r *MediaRepository) queryMedia(ctx context.Context, query string, args ...interface{}) ([]*models.MediaRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.MediaRecord
	for rows.Next() {
		record, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if records == nil {
		records = []*models.MediaRecord{}
	}

	return records, rows.Err()
}

// GetCount returns the total number of media records
func (r *MediaRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&count)
	return count, err
}

const insertMediaQuery = `
	INSERT INTO media (id, filename, stored_path, file_hash, file_size, width, height, media_type, date_taken, added_at, provider_id, provider_file_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Add inserts a new media record
func (r *MediaRepository) Add(ctx context.Context, m *models.MediaRecord) error {
	_, err := r.db.ExecContext(ctx, insertMediaQuery,
		m.ID, m.Filename, m.StoredPath, m.FileHash, m.FileSize,
		m.Width, m.Height, m.MediaType, m.DateTaken, m.AddedAt,
		m.ProviderID, m.ProviderFileID,
	)
	return err
}

// AddBatch inserts media records in a single transaction
func (r *MediaRepository) AddBatch(ctx context.Context, records []*models.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertMediaQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range records {
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Filename, m.StoredPath, m.FileHash, m.FileSize,
			m.Width, m.Height, m.MediaType, m.DateTaken, m.AddedAt,
			m.ProviderID, m.ProviderFileID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateFileInfo refreshes the mutable fields tracked by sync (size and
// dimensions). Other fields are first-import-wins.
func (r *MediaRepository) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	query := `UPDATE media SET file_size = ?, width = ?, height = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, size, width, height, id)
	return err
}

// Delete removes a media record by ID
func (r *MediaRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
