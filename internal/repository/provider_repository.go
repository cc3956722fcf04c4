package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/photolib/server/internal/models"
)

// ProviderRepository handles storage provider configuration persistence
type ProviderRepository struct {
	db *sql.DB
}

// NewProviderRepository creates a new ProviderRepository
func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

const providerColumns = `id, provider_type, display_name, enabled, config, last_sync_at, created_at`

func scanProvider(row interface{ Scan(...interface{}) error }) (*models.StorageProviderRecord, error) {
	var p models.StorageProviderRecord
	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.DisplayName,
		&p.Enabled,
		&p.Config,
		&p.LastSyncAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a provider record by its ID
func (r *ProviderRepository) GetByID(ctx context.Context, id string) (*models.StorageProviderRecord, error) {
	query := `SELECT ` + providerColumns + ` FROM storage_providers WHERE id = ?`

	record, err := scanProvider(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetAll retrieves provider records, optionally only enabled ones
func (r *ProviderRepository) GetAll(ctx context.Context, enabledOnly bool) ([]*models.StorageProviderRecord, error) {
	query := `SELECT ` + providerColumns + ` FROM storage_providers ORDER BY created_at`
	if enabledOnly {
		query = `SELECT ` + providerColumns + ` FROM storage_providers WHERE enabled = 1 ORDER BY created_at`
	}

	return r.queryProviders(ctx, query)
}

// GetByType retrieves provider records of the given type
func (r *ProviderRepository) GetByType(ctx context.Context, providerType models.ProviderType) ([]*models.StorageProviderRecord, error) {
	query := `SELECT ` + providerColumns + ` FROM storage_providers WHERE provider_type = ? ORDER BY created_at`
	return r.queryProviders(ctx, query, providerType)
}

func (r *ProviderRepository) queryProviders(ctx context.Context, query string, args ...interface{}) ([]*models.StorageProviderRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.StorageProviderRecord
	for rows.Next() {
		record, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if records == nil {
		records = []*models.StorageProviderRecord{}
	}

	return records, rows.Err()
}

// Add inserts a new provider record
func (r *ProviderRepository) Add(ctx context.Context, p *models.StorageProviderRecord) error {
	query := `
		INSERT INTO storage_providers (id, provider_type, display_name, enabled, config, last_sync_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Type, p.DisplayName, p.Enabled, p.Config, p.LastSyncAt, p.CreatedAt,
	)
	return err
}

// Update rewrites the mutable fields of a provider record
func (r *ProviderRepository) Update(ctx context.Context, p *models.StorageProviderRecord) error {
	query := `
		UPDATE storage_providers
		SET display_name = ?, enabled = ?, config = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query, p.DisplayName, p.Enabled, p.Config, p.ID)
	return err
}

// UpdateLastSync records a successful sync completion time
func (r *ProviderRepository) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE storage_providers SET last_sync_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}

// Delete removes a provider record by ID
func (r *ProviderRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM storage_providers WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
