package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string       `json:"serverAddress"`
	DatabasePath  string       `json:"databasePath"`
	DatabaseURL   string       `json:"databaseUrl"`
	MediaStorage  MediaStorage `json:"mediaStorage"`
	ContentCache  ContentCache `json:"contentCache"`
	Security      Security     `json:"security"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// MediaStorage configuration for the default local provider
type MediaStorage struct {
	BasePath          string   `json:"basePath"`
	MaxFileSizeMB     int64    `json:"maxFileSizeMB"`
	AllowedExtensions []string `json:"allowedExtensions"`
}

// ContentCache configuration
type ContentCache struct {
	Directory            string `json:"directory"`
	MaxSizeBytes         int64  `json:"maxSizeBytes"`
	JanitorIntervalHours int    `json:"janitorIntervalHours"`
}

// Security configuration
type Security struct {
	APIKey       string `json:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "photolib.db",
		MediaStorage: MediaStorage{
			BasePath:      "./media",
			MaxFileSizeMB: 200,
			AllowedExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".heif",
				".mp4", ".mov", ".m4v",
			},
		},
		ContentCache: ContentCache{
			Directory:            "./cache",
			MaxSizeBytes:         5 * 1024 * 1024 * 1024, // 5 GiB
			JanitorIntervalHours: 1,
		},
		Security: Security{
			APIKey:       "CHANGE_THIS_TO_A_SECURE_API_KEY_AT_LEAST_32_CHARS",
			APIKeyHeader: "X-API-Key",
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if basePath := os.Getenv("MEDIA_STORAGE_PATH"); basePath != "" {
		cfg.MediaStorage.BasePath = basePath
	}
	if cacheDir := os.Getenv("CONTENT_CACHE_DIR"); cacheDir != "" {
		cfg.ContentCache.Directory = cacheDir
	}
	if maxSize := os.Getenv("CONTENT_CACHE_MAX_BYTES"); maxSize != "" {
		if parsed, err := strconv.ParseInt(maxSize, 10, 64); err == nil && parsed > 0 {
			cfg.ContentCache.MaxSizeBytes = parsed
		}
	}
	if interval := os.Getenv("CACHE_JANITOR_INTERVAL_HOURS"); interval != "" {
		if hours, err := strconv.Atoi(interval); err == nil && hours > 0 {
			cfg.ContentCache.JanitorIntervalHours = hours
		}
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}

	// Ensure storage and cache directories exist
	if err := os.MkdirAll(cfg.MediaStorage.BasePath, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ContentCache.Directory, 0755); err != nil {
		return nil, err
	}

	// Make paths absolute
	absPath, err := filepath.Abs(cfg.MediaStorage.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.MediaStorage.BasePath = absPath

	absCache, err := filepath.Abs(cfg.ContentCache.Directory)
	if err != nil {
		return nil, err
	}
	cfg.ContentCache.Directory = absCache

	return cfg, nil
}
