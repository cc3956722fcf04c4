package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS storage_providers (
		id TEXT PRIMARY KEY,
		provider_type TEXT NOT NULL,
		display_name TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		config TEXT NOT NULL DEFAULT '',
		last_sync_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		file_hash TEXT NOT NULL DEFAULT '',
		file_size BIGINT NOT NULL,
		width INTEGER,
		height INTEGER,
		media_type TEXT NOT NULL DEFAULT 'photo',
		date_taken TIMESTAMP NOT NULL,
		added_at TIMESTAMP NOT NULL,
		provider_id TEXT REFERENCES storage_providers(id),
		provider_file_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_media_hash ON media(file_hash);
	CREATE INDEX IF NOT EXISTS idx_media_date ON media(date_taken);
	CREATE INDEX IF NOT EXISTS idx_media_provider ON media(provider_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_media_provider_file
		ON media(provider_id, provider_file_id)
		WHERE provider_id IS NOT NULL AND provider_file_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS cache_entries (
		hash TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		provider_file_id TEXT,
		picker_session_id TEXT,
		original_url TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		cached_at TIMESTAMP NOT NULL,
		last_accessed_at TIMESTAMP NOT NULL,
		access_count BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_provider ON cache_entries(provider_id);
	CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON cache_entries(last_accessed_at);
	`

	_, err := db.Exec(schema)
	return err
}
