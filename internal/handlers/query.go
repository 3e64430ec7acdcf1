package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/tendant/paged-content-pipeline/internal/hocr"
	"github.com/tendant/paged-content-pipeline/internal/pages"
	"github.com/tendant/paged-content-pipeline/internal/repository"
)

// QueryHandler serves read-only queries: page listings, reading direction,
// and HOCR search highlights for viewers
type QueryHandler struct {
	store      repository.Store
	enumerator *pages.Enumerator
	extractor  *hocr.Extractor
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(store repository.Store, enumerator *pages.Enumerator, extractor *hocr.Extractor) *QueryHandler {
	return &QueryHandler{
		store:      store,
		enumerator: enumerator,
		extractor:  extractor,
	}
}

// HandlePages handles GET /v1/pages?pid=... - returns the ordered member
// pages and the reading direction
func (h *QueryHandler) HandlePages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pid := r.URL.Query().Get("pid")
	if pid == "" {
		http.Error(w, "pid is required", http.StatusBadRequest)
		return
	}

	entries, err := h.enumerator.GetPages(r.Context(), pid)
	if err != nil {
		log.Printf("Failed to enumerate pages of %s: %v", pid, err)
		http.Error(w, "Failed to enumerate pages", http.StatusInternalServerError)
		return
	}

	progression, err := h.enumerator.GetPageProgression(r.Context(), pid)
	if err != nil {
		log.Printf("Failed to read page progression of %s: %v", pid, err)
		http.Error(w, "Failed to read page progression", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pid":              pid,
		"page_progression": progression,
		"pages":            entries,
	})
}

// HandleHighlights handles GET /v1/highlights?pid=...&term=... - returns the
// bounding boxes of words matching the term in the page's HOCR datastream
func (h *QueryHandler) HandleHighlights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pid := r.URL.Query().Get("pid")
	term := r.URL.Query().Get("term")
	if pid == "" || term == "" {
		http.Error(w, "pid and term are required", http.StatusBadRequest)
		return
	}

	obj, err := h.store.GetObject(r.Context(), pid)
	if err != nil {
		log.Printf("Failed to fetch object %s: %v", pid, err)
		http.Error(w, "Object not found", http.StatusNotFound)
		return
	}

	highlights := h.extractor.GetHighlights(r.Context(), obj, term, r.URL.Query().Get("dsid"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(highlights)
}
