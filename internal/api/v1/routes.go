// Package v1 provides the read-only REST API over the marketplace index.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plugindex/plugindex/internal/service"
)

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes holds the handlers with their injected service.
type Routes struct {
	service *service.Service
}

// Router creates the v1 API router.
func Router(svc *service.Service) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()

	r.Route("/marketplaces", func(r chi.Router) {
		r.Get("/", routes.listMarketplaces)
		r.Get("/{slug}", routes.getMarketplace)
		r.Get("/{slug}/plugins", routes.listMarketplacePlugins)
	})
	r.Get("/plugins", routes.listPlugins)
	r.Get("/categories", routes.listCategories)

	return r
}

func (h *Routes) listMarketplaces(w http.ResponseWriter, r *http.Request) {
	includeEmpty := r.URL.Query().Get("includeEmpty") == "true"

	if category := r.URL.Query().Get("category"); category != "" {
		writeJSON(w, http.StatusOK, h.service.ListByCategory(r.Context(), category))
		return
	}
	writeJSON(w, http.StatusOK, h.service.ListMarketplaces(r.Context(), includeEmpty))
}

func (h *Routes) getMarketplace(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	m, err := h.service.GetMarketplaceBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrMarketplaceNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Routes) listMarketplacePlugins(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if _, err := h.service.GetMarketplaceBySlug(r.Context(), slug); err != nil {
		if errors.Is(err, service.ErrMarketplaceNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.service.ListPluginsByMarketplace(r.Context(), slug))
}

func (h *Routes) listPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListPlugins(r.Context()))
}

func (h *Routes) listCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListCategories(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding failures here mean the client went away; nothing to do.
	_ = json.NewEncoder(w).Encode(payload)
}
