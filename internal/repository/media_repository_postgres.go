package repository

import (
	"context"
	"database/sql"

	"github.com/photolib/server/internal/models"
)

// MediaRepositoryPostgres handles media metadata persistence for PostgreSQL
type MediaRepositoryPostgres struct {
	db *sql.DB
}

// NewMediaRepositoryPostgres creates a new MediaRepositoryPostgres
func NewMediaRepositoryPostgres(db *sql.DB) *MediaRepositoryPostgres {
	return &MediaRepositoryPostgres{db: db}
}

// GetByID retrieves a media record by its ID
func (r *MediaRepositoryPostgres) GetByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

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
func (r *MediaRepositoryPostgres) GetByProviderFileID(ctx context.Context, providerID, fileID string) (*models.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE provider_id = $1 AND provider_file_id = $2`

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
func (r *MediaRepositoryPostgres) GetProviderFileIDs(ctx context.Context, providerID string) (map[string]string, error) {
	query := `
		SELECT provider_file_id, id FROM media
		WHERE provider_id = $1 AND provider_file_id IS NOT NULL
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
func (r *MediaRepositoryPostgres) GetForProvider(ctx context.Context, providerID string, skip, take int) ([]*models.MediaRecord, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media
		WHERE provider_id = $1
		ORDER BY date_taken DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryMedia(ctx, query, providerID, take, skip)
}

// GetAll retrieves media records with pagination
func (r *MediaRepositoryPostgres) GetAll(ctx context.Context, skip, take int) ([]*models.MediaRecord, error) {
	query := `
		SELECT ` + mediaColumns + ` FROM media
		ORDER BY date_taken DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryMedia(ctx, query, take, skip)
}

func (r *MediaRepositoryPostgres) queryMedia(ctx context.Context, query string, args ...interface{}) ([]*models.MediaRecord, error) {
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
func (r *MediaRepositoryPostgres) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media").Scan(&count)
	return count, err
}

const insertMediaQueryPostgres = `
	INSERT INTO media (id, filename, stored_path, file_hash, file_size, width, height, media_type, date_taken, added_at, provider_id, provider_file_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// Add inserts a new media record
func (r *MediaRepositoryPostgres) Add(ctx context.Context, m *models.MediaRecord) error {
	_, err := r.db.ExecContext(ctx, insertMediaQueryPostgres,
		m.ID, m.Filename, m.StoredPath, m.FileHash, m.FileSize,
		m.Width, m.Height, m.MediaType, m.DateTaken, m.AddedAt,
		m.ProviderID, m.ProviderFileID,
	)
	return err
}

// AddBatch inserts media records in a single transaction
func (r *MediaRepositoryPostgres) AddBatch(ctx context.Context, records []*models.MediaRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertMediaQueryPostgres)
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

// UpdateFileInfo refreshes the mutable fields tracked by sync
func (r *MediaRepositoryPostgres) UpdateFileInfo(ctx context.Context, id string, size int64, width, height *int) error {
	query := `UPDATE media SET file_size = $1, width = $2, height = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, size, width, height, id)
	return err
}

// Delete removes a media record by ID
func (r *MediaRepositoryPostgres) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = $1", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
