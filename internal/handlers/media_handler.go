package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/providers"
	"github.com/photolib/server/internal/repository"
)

// MediaHandler handles media metadata API endpoints
type MediaHandler struct {
	mediaRepo repository.MediaRepo
	registry  *providers.Registry
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(mediaRepo repository.MediaRepo, registry *providers.Registry) *MediaHandler {
	return &MediaHandler{
		mediaRepo: mediaRepo,
		registry:  registry,
	}
}

// ListMedia lists media records
// @Summary List media
// @Tags media
// @Produce json
// @Param skip query int false "Records to skip"
// @Param take query int false "Records to return (default 50, max 200)"
// @Param providerId query string false "Only records owned by this provider"
// @Success 200 {object} models.MediaListResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/media [get]
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	if skip < 0 {
		skip = 0
	}
	take, _ := strconv.Atoi(r.URL.Query().Get("take"))
	if take < 1 {
		take = 50
	}
	if take > 200 {
		take = 200
	}

	var records []*models.MediaRecord
	var err error
	if providerID := r.URL.Query().Get("providerId"); providerID != "" {
		records, err = h.mediaRepo.GetForProvider(r.Context(), providerID, skip, take)
	} else {
		records, err = h.mediaRepo.GetAll(r.Context(), skip, take)
	}
	if err != nil {
		http.Error(w, "Failed to list media: "+err.Error(), http.StatusInternalServerError)
		return
	}

	total, err := h.mediaRepo.GetCount(r.Context())
	if err != nil {
		http.Error(w, "Failed to count media: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := models.MediaListResponse{
		Media:      make([]models.MediaResponse, 0, len(records)),
		TotalCount: total,
		Skip:       skip,
		Take:       take,
	}
	for _, m := range records {
		resp.Media = append(resp.Media, models.MediaToResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetMedia returns one media record
// @Summary Get a media record
// @Tags media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} models.MediaResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/media/{id} [get]
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.mediaRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get media: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.MediaToResponse(record))
}

// DownloadMedia streams a media file's bytes from its provider
// @Summary Download media content
// @Tags media
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Success 200 {file} binary
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/media/{id}/content [get]
func (h *MediaHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.mediaRepo.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get media: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil || record.ProviderID == nil {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}

	provider, err := h.registry.GetProvider(r.Context(), *record.ProviderID)
	if err != nil {
		http.Error(w, "Failed to resolve provider: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if provider == nil {
		http.Error(w, "Owning provider is not available", http.StatusNotFound)
		return
	}

	fileID := record.ID
	if record.ProviderFileID != nil {
		fileID = *record.ProviderFileID
	}

	stream, err := provider.ReadFile(r.Context(), fileID)
	if err == models.ErrFileNotFound {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to read file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.Filename+`"`)
	io.Copy(w, stream)
}

// DeleteMedia removes a media record
// @Summary Delete a media record
// @Description Remove the metadata record. The file at the provider is untouched.
// @Tags media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/media/{id} [delete]
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.mediaRepo.Delete(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to delete media: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
