package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	visitssvc "github.com/ssmoliagin/weekendguide/internal/services/visits"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

type VisitHandler struct {
	service *visitssvc.Service
}

func NewVisitHandler(service *visitssvc.Service) *VisitHandler {
	return &VisitHandler{service: service}
}

func (h *VisitHandler) Visit(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "VISITS_SERVICE_UNAVAILABLE", "visits service is unavailable")
		return
	}

	var req dto.VisitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "lat and lon are required")
		return
	}

	result, err := h.service.MarkVisited(r.Context(), identity.UID, visitssvc.VisitInput{
		CountryCode: req.CountryCode,
		RegionCode:  req.RegionCode,
		Lang:        req.Lang,
		POIID:       req.POIID,
		Lat:         *req.Lat,
		Lon:         *req.Lon,
	})
	if err != nil {
		switch {
		case errors.Is(err, visitssvc.ErrValidation), errors.Is(err, catalogsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid visit request")
		case errors.Is(err, visitssvc.ErrRegionLocked):
			writeForbidden(w, "REGION_LOCKED", "region is not unlocked")
		case errors.Is(err, visitssvc.ErrTooFar):
			httperrors.Write(w, http.StatusUnprocessableEntity, httperrors.APIError{
				Code:    "TOO_FAR",
				Message: "you are too far from this place",
			})
		case errors.Is(err, visitssvc.ErrGPSTimeout):
			httperrors.Write(w, http.StatusGatewayTimeout, httperrors.APIError{
				Code:    "GPS_TIMEOUT",
				Message: "location check timed out",
			})
		case errors.Is(err, catalogsvc.ErrNotFound):
			writeNotFound(w, "POI_NOT_FOUND", "place not found")
		case errors.Is(err, profilesvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to mark visit")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.VisitResponse{
		OK:             true,
		POIID:          result.POIID,
		AlreadyVisited: result.AlreadyVisited,
		RewardGP:       result.RewardGP,
		DistanceM:      result.DistanceM,
		VisitedAt:      result.VisitedAt,
		CurrentGP:      result.Profile.CurrentGP,
		TotalGP:        result.Profile.TotalGP,
	})
}
