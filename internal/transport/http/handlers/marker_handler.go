package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	markerssvc "github.com/ssmoliagin/weekendguide/internal/services/markers"
)

type MarkerHandler struct {
	service *markerssvc.Service
}

func NewMarkerHandler(service *markerssvc.Service) *MarkerHandler {
	return &MarkerHandler{service: service}
}

func (h *MarkerHandler) Icon(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "MARKERS_UNAVAILABLE", "markers are unavailable")
		return
	}

	visited, err := queryBool(r, "visited")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}
	favorite, err := queryBool(r, "favorite")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	icon, err := h.service.Icon(r.Context(), chi.URLParam(r, "category"), visited, favorite)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to render marker")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(icon)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon)
}
