package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/services"
)

// SyncHandler handles sync API endpoints
type SyncHandler struct {
	syncService *services.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

func decodeSyncOptions(r *http.Request) models.SyncOptions {
	opts := models.DefaultSyncOptions()
	if r.Body == nil || r.ContentLength == 0 {
		return opts
	}
	// A malformed body falls back to defaults rather than failing the trigger
	_ = json.NewDecoder(r.Body).Decode(&opts)
	return opts
}

// SyncProvider triggers a sync for one provider
// @Summary Sync a provider
// @Description Run a reconciliation pass for one storage provider. Returns the completed result; a sync already in progress is reported as a failed result, not an error.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param options body models.SyncOptions false "Sync options"
// @Success 200 {object} models.SyncResult
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/providers/{id} [post]
func (h *SyncHandler) SyncProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")
	opts := decodeSyncOptions(r)

	result := h.syncService.SyncProvider(r.Context(), providerID, opts)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SyncAll triggers a sync for every enabled provider
// @Summary Sync all providers
// @Description Run a reconciliation pass for every enabled provider, sequentially
// @Tags sync
// @Accept json
// @Produce json
// @Param options body models.SyncOptions false "Sync options"
// @Success 200 {array} models.SyncResult
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/all [post]
func (h *SyncHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	opts := decodeSyncOptions(r)

	results := h.syncService.SyncAllProviders(r.Context(), opts)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// GetStatus returns the live sync status for a provider
// @Summary Get sync status
// @Description Get the live status of a provider's sync. Providers that never synced report a quiescent status.
// @Tags sync
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} models.SyncStatus
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/providers/{id}/status [get]
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	status := h.syncService.GetSyncStatus(providerID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// CancelSync requests cancellation of a running sync
// @Summary Cancel a sync
// @Description Request cancellation of a provider's running sync. Work already committed stays committed.
// @Tags sync
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse "No sync in progress"
// @Security ApiKeyAuth
// @Router /api/sync/providers/{id}/cancel [post]
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	if !h.syncService.CancelSync(providerID) {
		http.Error(w, "No sync in progress for this provider", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"cancelled": true})
}

// ScanProvider previews what a sync would import
// @Summary Scan a provider
// @Description Preview what a sync would import without writing anything
// @Tags sync
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} models.ScanResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/providers/{id}/scan [get]
func (h *SyncHandler) ScanProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	scan, err := h.syncService.ScanProvider(r.Context(), providerID, models.DefaultSyncOptions())
	if err != nil {
		http.Error(w, "Failed to scan provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if scan == nil {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scan)
}
