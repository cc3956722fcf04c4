package models

import "time"

// CacheEntry is a content-addressed cache record. The hash is the primary key
// and is computed from the exact bytes stored at LocalPath; no two entries may
// share a hash with different bytes.
type CacheEntry struct {
	Hash            string    `json:"hash"` // lowercase hex SHA-256
	ProviderID      string    `json:"providerId"`
	ProviderFileID  *string   `json:"providerFileId,omitempty"`
	PickerSessionID *string   `json:"pickerSessionId,omitempty"`
	OriginalURL     string    `json:"originalUrl,omitempty"`
	LocalPath       string    `json:"localPath"`
	FileSize        int64     `json:"fileSize"`
	ContentType     string    `json:"contentType"`
	CachedAt        time.Time `json:"cachedAt"`
	LastAccessedAt  time.Time `json:"lastAccessedAt"`
	AccessCount     int64     `json:"accessCount"`
}

// CacheStatus summarizes cache usage for observability endpoints
type CacheStatus struct {
	TotalSizeBytes int64   `json:"totalSizeBytes"`
	FileCount      int     `json:"fileCount"`
	MaxSizeBytes   int64   `json:"maxSizeBytes"`
	UsagePercent   float64 `json:"usagePercent"`
}
