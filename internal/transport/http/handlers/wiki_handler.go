package handlers

import (
	"errors"
	"net/http"

	"github.com/ssmoliagin/weekendguide/internal/pkg/validate"
	wikisvc "github.com/ssmoliagin/weekendguide/internal/services/wiki"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

const maxWikiTitleRunes = 300

type WikiHandler struct {
	service *wikisvc.Service
}

func NewWikiHandler(service *wikisvc.Service) *WikiHandler {
	return &WikiHandler{service: service}
}

func (h *WikiHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "WIKI_UNAVAILABLE", "wiki is unavailable")
		return
	}

	query := r.URL.Query()
	title := query.Get("title")
	if !validate.Required(title) || !validate.MaxRunes(title, maxWikiTitleRunes) {
		writeBadRequest(w, "VALIDATION_ERROR", "title is required")
		return
	}

	summary, err := h.service.Summary(r.Context(), title, query.Get("lang"))
	if err != nil {
		switch {
		case errors.Is(err, wikisvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "title and lang are invalid")
		case errors.Is(err, wikisvc.ErrNotFound):
			writeNotFound(w, "ARTICLE_NOT_FOUND", "article not found")
		case errors.Is(err, wikisvc.ErrUpstream):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "WIKI_UPSTREAM_ERROR",
				Message: "wiki is not responding",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load summary")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WikiSummaryResponse{
		Title:   summary.Title,
		Extract: summary.Extract,
	})
}
