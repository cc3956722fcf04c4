package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Storage providers table
	CREATE TABLE IF NOT EXISTS storage_providers (
		id TEXT PRIMARY KEY,
		provider_type TEXT NOT NULL,
		display_name TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		config TEXT NOT NULL DEFAULT '',
		last_sync_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_providers_type ON storage_providers(provider_type);
	CREATE INDEX IF NOT EXISTS idx_providers_enabled ON storage_providers(enabled);

	-- Media records table
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		file_hash TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL,
		width INTEGER,
		height INTEGER,
		media_type TEXT NOT NULL DEFAULT 'photo',
		date_taken DATETIME NOT NULL,
		added_at DATETIME NOT NULL,
		provider_id TEXT REFERENCES storage_providers(id),
		provider_file_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_media_hash ON media(file_hash);
	CREATE INDEX IF NOT EXISTS idx_media_date ON media(date_taken);
	CREATE INDEX IF NOT EXISTS idx_media_provider ON media(provider_id);
	-- Sync idempotency key: one record per (provider, provider file)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_media_provider_file
		ON media(provider_id, provider_file_id)
		WHERE provider_id IS NOT NULL AND provider_file_id IS NOT NULL;

	-- Content cache entries table
	CREATE TABLE IF NOT EXISTS cache_entries (
		hash TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		provider_file_id TEXT,
		picker_session_id TEXT,
		original_url TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		cached_at DATETIME NOT NULL,
		last_accessed_at DATETIME NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_provider ON cache_entries(provider_id);
	CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON cache_entries(last_accessed_at);
	`

	_, err := db.Exec(schema)
	return err
}
