package models

import "time"

// MediaResponse is a single media record in API responses
type MediaResponse struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	StoredPath     string    `json:"storedPath"`
	FileSize       int64     `json:"fileSize"`
	MediaType      MediaType `json:"mediaType"`
	Width          *int      `json:"width,omitempty"`
	Height         *int      `json:"height,omitempty"`
	DateTaken      time.Time `json:"dateTaken"`
	AddedAt        time.Time `json:"addedAt"`
	ProviderID     *string   `json:"providerId,omitempty"`
	ProviderFileID *string   `json:"providerFileId,omitempty"`
}

// MediaListResponse is returned when listing media
type MediaListResponse struct {
	Media      []MediaResponse `json:"media"`
	TotalCount int             `json:"totalCount"`
	Skip       int             `json:"skip"`
	Take       int             `json:"take"`
}

// MediaToResponse converts a MediaRecord to MediaResponse
func MediaToResponse(m *MediaRecord) MediaResponse {
	return MediaResponse{
		ID:             m.ID,
		Filename:       m.Filename,
		StoredPath:     m.StoredPath,
		FileSize:       m.FileSize,
		MediaType:      m.MediaType,
		Width:          m.Width,
		Height:         m.Height,
		DateTaken:      m.DateTaken,
		AddedAt:        m.AddedAt,
		ProviderID:     m.ProviderID,
		ProviderFileID: m.ProviderFileID,
	}
}

// ProviderResponse is a storage provider in API responses; the config blob is
// omitted because it may carry credentials.
type ProviderResponse struct {
	ID           string       `json:"id"`
	Type         ProviderType `json:"type"`
	DisplayName  string       `json:"displayName"`
	Enabled      bool         `json:"enabled"`
	LastSyncAt   *time.Time   `json:"lastSyncAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	SupportsUpload bool       `json:"supportsUpload"`
	SupportsWatch  bool       `json:"supportsWatch"`
}

// CreateProviderRequest is the request body for creating a provider
type CreateProviderRequest struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	Config      string `json:"config"`
}

// UpdateProviderRequest is the request body for updating a provider
type UpdateProviderRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	Config      *string `json:"config,omitempty"`
}

// CacheEntryListResponse is returned when listing cache entries
type CacheEntryListResponse struct {
	Entries    []CacheEntry `json:"entries"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
