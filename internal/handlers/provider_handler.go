package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/providers"
	"github.com/photolib/server/internal/repository"
)

// ProviderHandler handles storage provider API endpoints
type ProviderHandler struct {
	providerRepo repository.ProviderRepo
	registry     *providers.Registry
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(providerRepo repository.ProviderRepo, registry *providers.Registry) *ProviderHandler {
	return &ProviderHandler{
		providerRepo: providerRepo,
		registry:     registry,
	}
}

func (h *ProviderHandler) toResponse(record *models.StorageProviderRecord) models.ProviderResponse {
	resp := models.ProviderResponse{
		ID:          record.ID,
		Type:        record.Type,
		DisplayName: record.DisplayName,
		Enabled:     record.Enabled,
		LastSyncAt:  record.LastSyncAt,
		CreatedAt:   record.CreatedAt,
	}

	// Capabilities come from the provider kind, not the record
	if p, err := h.registry.CreateProvider(record.Type); err == nil && p != nil {
		resp.SupportsUpload = p.SupportsUpload()
		resp.SupportsWatch = p.SupportsWatch()
	}

	return resp
}

// ListProviders lists configured providers
// @Summary List providers
// @Description List all configured storage providers. Config blobs are never returned.
// @Tags providers
// @Produce json
// @Param enabledOnly query bool false "Only return enabled providers"
// @Success 200 {array} models.ProviderResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers [get]
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabledOnly") == "true"

	records, err := h.providerRepo.GetAll(r.Context(), enabledOnly)
	if err != nil {
		http.Error(w, "Failed to list providers: "+err.Error(), http.StatusInternalServerError)
		return
	}

	responses := make([]models.ProviderResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, h.toResponse(record))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetProvider returns one provider
// @Summary Get a provider
// @Tags providers
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} models.ProviderResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers/{id} [get]
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.providerRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toResponse(record))
}

// CreateProvider registers a new provider
// @Summary Create a provider
// @Description Register a new storage provider configuration
// @Tags providers
// @Accept json
// @Produce json
// @Param request body models.CreateProviderRequest true "Provider to create"
// @Success 201 {object} models.ProviderResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers [post]
func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	providerType, ok := models.ParseProviderType(req.Type)
	if !ok {
		http.Error(w, "Unknown provider type: "+req.Type, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		http.Error(w, "Display name is required", http.StatusBadRequest)
		return
	}

	// Reject types the registry cannot construct up front
	if _, err := h.registry.CreateProvider(providerType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record := models.NewStorageProviderRecord(providerType, req.DisplayName, req.Config)
	if err := h.providerRepo.Add(r.Context(), record); err != nil {
		http.Error(w, "Failed to create provider: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.toResponse(record))
}

// UpdateProvider updates a provider's mutable fields
// @Summary Update a provider
// @Description Update display name, enabled flag, or config. The cached instance is dropped so the next use picks up the change.
// @Tags providers
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param request body models.UpdateProviderRequest true "Fields to update"
// @Success 200 {object} models.ProviderResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers/{id} [put]
func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.providerRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	if req.DisplayName != nil {
		record.DisplayName = *req.DisplayName
	}
	if req.Enabled != nil {
		record.Enabled = *req.Enabled
	}
	if req.Config != nil {
		record.Config = *req.Config
	}

	if err := h.providerRepo.Update(r.Context(), record); err != nil {
		http.Error(w, "Failed to update provider: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Stale instances must not outlive a config change
	h.registry.ClearCache()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toResponse(record))
}

// DeleteProvider removes a provider configuration
// @Summary Delete a provider
// @Tags providers
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers/{id} [delete]
func (h *ProviderHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.providerRepo.Delete(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to delete provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Provider not found", http.StatusNotFound)
		return
	}

	h.registry.ClearCache()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}

// TestConnection checks whether a provider's backing store is reachable
// @Summary Test provider connection
// @Tags providers
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/providers/{id}/test [post]
func (h *ProviderHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	provider, err := h.registry.GetProvider(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to resolve provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if provider == nil {
		http.Error(w, "Provider not found or disabled", http.StatusNotFound)
		return
	}

	ok := provider.TestConnection(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"connected": ok})
}
