package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
	visitssvc "github.com/ssmoliagin/weekendguide/internal/services/visits"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

type MeHandler struct {
	profiles *profilesvc.Service
	unlock   *unlocksvc.Service
	visits   *visitssvc.Service
	now      func() time.Time
}

func NewMeHandler(profiles *profilesvc.Service, unlock *unlocksvc.Service, visits *visitssvc.Service) *MeHandler {
	return &MeHandler{
		profiles: profiles,
		unlock:   unlock,
		visits:   visits,
		now:      time.Now,
	}
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	profile, err := h.profiles.Get(r.Context(), identity.UID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	writeMe(w, profile, h.now())
}

func (h *MeHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.PreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	profile, err := h.profiles.UpdatePreferences(r.Context(), identity.UID, profilesvc.PreferencesInput{
		Language:             req.Language,
		Theme:                req.Theme,
		Units:                req.Units,
		NotificationsEnabled: req.NotificationsEnabled,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}

	writeMe(w, profile, h.now())
}

func (h *MeHandler) Identity(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.IdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	profile, err := h.profiles.UpdateIdentity(r.Context(), identity.UID, req.DisplayName, req.PhotoURL)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	writeMe(w, profile, h.now())
}

func (h *MeHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	poiID := strings.TrimSpace(chi.URLParam(r, "poi_id"))
	favorite, err := h.profiles.ToggleFavorite(r.Context(), identity.UID, poiID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FavoriteToggleResponse{
		POIID:    poiID,
		Favorite: favorite,
	})
}

func (h *MeHandler) Flag(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	flag := chi.URLParam(r, "flag")
	value, err := h.profiles.GetFlag(r.Context(), identity.UID, flag)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FlagResponse{Flag: flag, Value: value})
}

func (h *MeHandler) SetFlag(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.FlagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	flag := chi.URLParam(r, "flag")
	if err := h.profiles.SetFlag(r.Context(), identity.UID, flag, req.Value); err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FlagResponse{Flag: flag, Value: req.Value})
}

func (h *MeHandler) Collection(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.unlock == nil {
		writeInternal(w, "UNLOCK_SERVICE_UNAVAILABLE", "unlock service is unavailable")
		return
	}

	items, err := h.unlock.Collection(r.Context(), identity.UID)
	if err != nil {
		handleProfileError(w, err)
		return
	}
	if items == nil {
		items = []model.CollectionEntry{}
	}

	httperrors.Write(w, http.StatusOK, dto.CollectionResponse{Items: items})
}

func (h *MeHandler) Visited(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.visits == nil {
		writeInternal(w, "VISITS_SERVICE_UNAVAILABLE", "visits service is unavailable")
		return
	}

	places, err := h.visits.Visited(r.Context(), identity.UID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	items := make([]dto.VisitedItem, 0, len(places))
	for _, place := range places {
		items = append(items, dto.VisitedItem{
			POIID:     place.POIID,
			VisitedAt: place.VisitedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.VisitedResponse{Items: items})
}

func writeMe(w http.ResponseWriter, profile model.UserProfile, now time.Time) {
	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		Profile: profile,
		Subscription: dto.SubscriptionResponse{
			Active: profile.SubscriptionActive(now),
			Until:  profile.SubscriptionUntil,
		},
	})
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, profilesvc.ErrNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process profile request")
	}
}
