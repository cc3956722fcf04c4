package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProviderType enumerates the supported storage backends
type ProviderType string

const (
	ProviderTypeLocal        ProviderType = "local"
	ProviderTypeRemotePicker ProviderType = "remote_picker"
	ProviderTypeRemoteDrive  ProviderType = "remote_drive"
)

// ParseProviderType validates a provider type string
func ParseProviderType(s string) (ProviderType, bool) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderTypeLocal:
		return ProviderTypeLocal, true
	case ProviderTypeRemotePicker:
		return ProviderTypeRemotePicker, true
	case ProviderTypeRemoteDrive:
		return ProviderTypeRemoteDrive, true
	default:
		return "", false
	}
}

// StorageProviderRecord is the persisted configuration for a storage provider
type StorageProviderRecord struct {
	ID          string       `json:"id"`
	Type        ProviderType `json:"type"`
	DisplayName string       `json:"displayName"`
	Enabled     bool         `json:"enabled"`
	Config      string       `json:"config"` // opaque JSON blob, parsed per type
	LastSyncAt  *time.Time   `json:"lastSyncAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewStorageProviderRecord creates an enabled provider record
func NewStorageProviderRecord(providerType ProviderType, displayName, config string) *StorageProviderRecord {
	return &StorageProviderRecord{
		ID:          uuid.New().String(),
		Type:        providerType,
		DisplayName: displayName,
		Enabled:     true,
		Config:      config,
		CreatedAt:   time.Now().UTC(),
	}
}

// LocalProviderConfig configures a filesystem-backed provider
type LocalProviderConfig struct {
	BasePath        string `json:"basePath"`
	OrganizeByDate  bool   `json:"organizeByDate"`
	WatchForChanges bool   `json:"watchForChanges"`
}

// PickerProviderConfig configures a read-only picker-backed provider
type PickerProviderConfig struct {
	SessionTTLMinutes int `json:"sessionTtlMinutes"`
}

// ParseLocalProviderConfig parses a local provider config blob. Malformed or
// missing JSON is never fatal: the returned config falls back to defaults.
func ParseLocalProviderConfig(blob string) LocalProviderConfig {
	cfg := LocalProviderConfig{
		OrganizeByDate:  true,
		WatchForChanges: true,
	}
	if strings.TrimSpace(blob) == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return LocalProviderConfig{
			OrganizeByDate:  true,
			WatchForChanges: true,
		}
	}
	return cfg
}

// ParsePickerProviderConfig parses a picker provider config blob with the
// same default-on-failure policy as ParseLocalProviderConfig.
func ParsePickerProviderConfig(blob string) PickerProviderConfig {
	cfg := PickerProviderConfig{SessionTTLMinutes: 60}
	if strings.TrimSpace(blob) == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return PickerProviderConfig{SessionTTLMinutes: 60}
	}
	if cfg.SessionTTLMinutes <= 0 {
		cfg.SessionTTLMinutes = 60
	}
	return cfg
}
