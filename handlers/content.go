package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"harborlight/models"
	"harborlight/services/content"
)

// ContentHandler serves the CMS-backed site content endpoints.
type ContentHandler struct {
	Service *content.Service
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(service *content.Service) *ContentHandler {
	return &ContentHandler{Service: service}
}

// GetPages returns all content pages.
func (h *ContentHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	pages := []models.Page{}
	refreshedAt := ""
	if snap != nil {
		pages = snap.Pages
		refreshedAt = snap.RefreshedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pages":       pages,
		"total":       len(pages),
		"refreshedAt": refreshedAt,
	})
}

// GetPage returns a single content page by slug.
func (h *ContentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	page, ok := h.Service.PageBySlug(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "page not found: "+slug)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// GetPrograms returns the organization's programs.
func (h *ContentHandler) GetPrograms(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	programs := []models.Program{}
	if snap != nil {
		programs = snap.Programs
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"programs": programs,
		"total":    len(programs),
	})
}

// GetResources returns the community resource listings.
func (h *ContentHandler) GetResources(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	resources := []models.Resource{}
	if snap != nil {
		resources = snap.Resources
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"resources": resources,
		"total":     len(resources),
	})
}

// GetAnnouncements returns published announcements, newest first.
func (h *ContentHandler) GetAnnouncements(w http.ResponseWriter, r *http.Request) {
	snap := h.Service.Snapshot()
	announcements := []models.Announcement{}
	if snap != nil {
		announcements = snap.Announcements
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"announcements": announcements,
		"total":         len(announcements),
	})
}

// GetStatus returns the content worker status.
func (h *ContentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.GetStatus())
}

// Refresh triggers an immediate content refresh.
func (h *ContentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.Service.Refresh()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "refresh queued"})
}

// Options handles CORS preflight.
func (h *ContentHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
