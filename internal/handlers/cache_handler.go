package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/photolib/server/internal/models"
	"github.com/photolib/server/internal/services"
)

// CacheHandler handles content cache API endpoints
type CacheHandler struct {
	cache   *services.ContentCache
	janitor *services.CacheJanitor
}

// NewCacheHandler creates a new CacheHandler
func NewCacheHandler(cache *services.ContentCache, janitor *services.CacheJanitor) *CacheHandler {
	return &CacheHandler{
		cache:   cache,
		janitor: janitor,
	}
}

// GetStatus returns cache usage against the budget
// @Summary Get cache status
// @Tags cache
// @Produce json
// @Success 200 {object} models.CacheStatus
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache/status [get]
func (h *CacheHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.cache.Status(r.Context())
	if err != nil {
		http.Error(w, "Failed to get cache status: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// ListEntries lists cache entries, most recently accessed first
// @Summary List cache entries
// @Tags cache
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param pageSize query int false "Page size (default 50, max 200)"
// @Success 200 {object} models.CacheEntryListResponse
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache/entries [get]
func (h *CacheHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	entries, total, err := h.cache.ListPaged(r.Context(), page, pageSize)
	if err != nil {
		http.Error(w, "Failed to list cache entries: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := models.CacheEntryListResponse{
		Entries:    make([]models.CacheEntry, 0, len(entries)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, *e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ClearAll removes every cache entry
// @Summary Clear the cache
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache [delete]
func (h *CacheHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.cache.ClearAll(r.Context())
	if err != nil {
		http.Error(w, "Failed to clear cache: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"removed": removed})
}

// ClearForProvider removes all entries owned by one provider
// @Summary Clear a provider's cache entries
// @Tags cache
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} map[string]int
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache/providers/{id} [delete]
func (h *CacheHandler) ClearForProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "id")

	removed, err := h.cache.ClearForProvider(r.Context(), providerID)
	if err != nil {
		http.Error(w, "Failed to clear provider cache: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"removed": removed})
}

// GetJanitorStatus returns the janitor's last-run status
// @Summary Get cache janitor status
// @Tags cache
// @Produce json
// @Success 200 {object} services.JanitorStatus
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache/janitor/status [get]
func (h *CacheHandler) GetJanitorStatus(w http.ResponseWriter, r *http.Request) {
	status := h.janitor.GetStatus()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// RunJanitor triggers an immediate maintenance run
// @Summary Run cache maintenance now
// @Description Trigger an immediate maintenance run (runs in background)
// @Tags cache
// @Produce json
// @Success 202 {object} services.JanitorStatus
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/cache/janitor/run [post]
func (h *CacheHandler) RunJanitor(w http.ResponseWriter, r *http.Request) {
	h.janitor.RunNow()
	status := h.janitor.GetStatus()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(status)
}
