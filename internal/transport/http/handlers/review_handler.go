package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	reviewssvc "github.com/ssmoliagin/weekendguide/internal/services/reviews"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

type ReviewHandler struct {
	service *reviewssvc.Service
}

func NewReviewHandler(service *reviewssvc.Service) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "REVIEWS_UNAVAILABLE", "reviews are unavailable")
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	poiID := chi.URLParam(r, "poi_id")
	items, err := h.service.ListByPOI(r.Context(), poiID, limit)
	if err != nil {
		handleReviewError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), poiID)
	if err != nil {
		handleReviewError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReviewsResponse{
		Items:   items,
		Summary: summary,
	})
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeUnavailable(w, "REVIEWS_UNAVAILABLE", "reviews are unavailable")
		return
	}

	var req dto.ReviewCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	review, err := h.service.Add(r.Context(), identity.UID, reviewssvc.AddInput{
		POIID:    chi.URLParam(r, "poi_id"),
		Rating:   req.Rating,
		Text:     req.Text,
		Language: req.Language,
	})
	if err != nil {
		handleReviewError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, review)
}

func handleReviewError(w http.ResponseWriter, err error) {
	if tf, ok := reviewssvc.IsTooFast(err); ok {
		httperrors.WriteRateLimited(w, "TOO_FAST", "too many reviews, slow down", tf.RetryAfter())
		return
	}
	switch {
	case errors.Is(err, reviewssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process review request")
	}
}
