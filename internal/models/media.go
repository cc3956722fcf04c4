package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType distinguishes photos from videos
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// MediaRecord represents a media file known to the library
type MediaRecord struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	StoredPath     string    `json:"storedPath"`
	FileHash       string    `json:"fileHash,omitempty"`
	FileSize       int64     `json:"fileSize"`
	Width          *int      `json:"width,omitempty"`
	Height         *int      `json:"height,omitempty"`
	MediaType      MediaType `json:"mediaType"`
	DateTaken      time.Time `json:"dateTaken"`
	AddedAt        time.Time `json:"addedAt"`
	ProviderID     *string   `json:"providerId,omitempty"`
	ProviderFileID *string   `json:"providerFileId,omitempty"`
}

// NewMediaRecord creates a new MediaRecord with validation and sanitization.
// The (ProviderID, ProviderFileID) pair is the sync engine's idempotency key
// and must be unique when both are present.
func NewMediaRecord(filename, storedPath string, fileSize int64, mediaType MediaType, dateTaken time.Time) (*MediaRecord, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrEmptyFilename
	}
	if strings.TrimSpace(storedPath) == "" {
		return nil, ErrEmptyStoredPath
	}
	if fileSize < 0 {
		return nil, ErrInvalidFileSize
	}
	if mediaType == "" {
		mediaType = MediaTypePhoto
	}

	return &MediaRecord{
		ID:         uuid.New().String(),
		Filename:   sanitizeFilename(filename),
		StoredPath: storedPath,
		FileSize:   fileSize,
		MediaType:  mediaType,
		DateTaken:  dateTaken,
		AddedAt:    time.Now().UTC(),
	}, nil
}

// sanitizeFilename removes path components and invalid characters
func sanitizeFilename(filename string) string {
	// Get just the filename, no path
	name := filepath.Base(filename)

	// Remove potentially dangerous characters
	replacer := strings.NewReplacer(
		"..", "",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)

	return replacer.Replace(name)
}

// MediaTypeForFilename classifies a filename by extension
func MediaTypeForFilename(filename string) MediaType {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v":
		return MediaTypeVideo
	default:
		return MediaTypePhoto
	}
}

// Errors
type MediaError struct {
	Message string
}

func (e MediaError) Error() string {
	return e.Message
}

var (
	ErrEmptyFilename    = MediaError{"filename cannot be empty"}
	ErrEmptyStoredPath  = MediaError{"stored path cannot be empty"}
	ErrEmptyHash        = MediaError{"file hash cannot be empty"}
	ErrInvalidFileSize  = MediaError{"file size cannot be negative"}
	ErrMediaNotFound    = MediaError{"media record not found"}
	ErrFileNotFound     = MediaError{"file not found"}
	ErrNotSupported     = MediaError{"operation not supported by this provider"}
	ErrNotImplemented   = MediaError{"provider type not implemented"}
	ErrInvalidExtension = MediaError{"file extension not allowed"}
	ErrPathTraversal    = MediaError{"invalid path - path traversal detected"}
	ErrHashMismatch     = MediaError{"content hash does not match stream contents"}
)
