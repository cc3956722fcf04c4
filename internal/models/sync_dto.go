package models

import "time"

// RemoteFile describes one entry from a provider listing. It is transient:
// reconstructed on every listing call and never persisted directly.
type RemoteFile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
	ContentType    string    `json:"contentType"`
	MediaType      MediaType `json:"mediaType"`
	CreatedTime    time.Time `json:"createdTime"`
	ModifiedTime   time.Time `json:"modifiedTime"`
	Hash           string    `json:"hash,omitempty"`
	Width          *int      `json:"width,omitempty"`
	Height         *int      `json:"height,omitempty"`
	DurationSecs   *float64  `json:"durationSecs,omitempty"`
	IsFolder       bool      `json:"isFolder"`
	ParentFolderID string    `json:"parentFolderId,omitempty"`
}

// WriteResult is returned after a provider write
type WriteResult struct {
	FileID     string    `json:"fileId"`
	StoredPath string    `json:"storedPath"`
	Size       int64     `json:"size"`
	WrittenAt  time.Time `json:"writtenAt"`
}

// SyncOptions controls one reconciliation pass
type SyncOptions struct {
	FolderID      string `json:"folderId,omitempty"`
	Recursive     bool   `json:"recursive"`
	SkipExisting  bool   `json:"skipExisting"`
	RemoveDeleted bool   `json:"removeDeleted"`
}

// DefaultSyncOptions returns the options used when a trigger supplies none
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		Recursive:    true,
		SkipExisting: true,
	}
}

// SyncResult is the immutable outcome of one sync pass
type SyncResult struct {
	ProviderID      string    `json:"providerId"`
	Success         bool      `json:"success"`
	Message         string    `json:"message,omitempty"`
	FilesAdded      int       `json:"filesAdded"`
	FilesUpdated    int       `json:"filesUpdated"`
	FilesRemoved    int       `json:"filesRemoved"`
	FilesSkipped    int       `json:"filesSkipped"`
	TotalFilesFound int       `json:"totalFilesFound"`
	StartedAt       time.Time `json:"startedAt"`
	CompletedAt     time.Time `json:"completedAt"`
	Errors          []string  `json:"errors,omitempty"`
}

// FailedSyncResult builds a failed result with the given message
func FailedSyncResult(providerID, message string, startedAt time.Time) *SyncResult {
	return &SyncResult{
		ProviderID:  providerID,
		Success:     false,
		Message:     message,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		Errors:      []string{},
	}
}

// SyncStatus is the live, in-memory state of a provider's sync
type SyncStatus struct {
	ProviderID       string      `json:"providerId"`
	InProgress       bool        `json:"inProgress"`
	Progress         int         `json:"progress"` // 0-100, coarse, UI only
	CurrentOperation string      `json:"currentOperation,omitempty"`
	FilesProcessed   int         `json:"filesProcessed"`
	TotalFiles       int         `json:"totalFiles"`
	StartedAt        time.Time   `json:"startedAt,omitempty"`
	LastResult       *SyncResult `json:"lastResult,omitempty"`
}

// ScanResult is the outcome of a read-only provider preview
type ScanResult struct {
	ProviderID      string       `json:"providerId"`
	TotalFilesFound int          `json:"totalFilesFound"`
	NewFiles        int          `json:"newFiles"`
	KnownFiles      int          `json:"knownFiles"`
	NewFilesSize    int64        `json:"newFilesSize"`
	Sample          []RemoteFile `json:"sample,omitempty"`
	ScannedAt       time.Time    `json:"scannedAt"`
}
