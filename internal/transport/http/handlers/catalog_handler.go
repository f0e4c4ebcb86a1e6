package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	geosvc "github.com/ssmoliagin/weekendguide/internal/services/geo"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

type CatalogHandler struct {
	catalog  *catalogsvc.Service
	geo      *geosvc.Service
	unlock   *unlocksvc.Service
	profiles *profilesvc.Service
}

func NewCatalogHandler(catalog *catalogsvc.Service, geo *geosvc.Service, unlock *unlocksvc.Service, profiles *profilesvc.Service) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		geo:      geo,
		unlock:   unlock,
		profiles: profiles,
	}
}

func (h *CatalogHandler) Countries(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeUnavailable(w, "CATALOG_UNAVAILABLE", "catalog is unavailable")
		return
	}

	countries, err := h.catalog.Countries(r.Context())
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CountriesResponse{Items: countries})
}

func (h *CatalogHandler) Regions(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeUnavailable(w, "CATALOG_UNAVAILABLE", "catalog is unavailable")
		return
	}

	regions, err := h.catalog.Regions(r.Context(), chi.URLParam(r, "country"))
	if errors.Is(err, catalogsvc.ErrNotFound) {
		regions, err = nil, nil
	}
	if err != nil {
		handleCatalogError(w, err)
		return
	}

	profile, hasProfile := h.profile(r)
	items := make([]dto.RegionItem, 0, len(regions))
	for _, region := range regions {
		items = append(items, dto.RegionItem{
			Region:   region,
			Unlocked: hasProfile && profile.HasRegion(region.CountryCode, region.Code),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.RegionsResponse{Items: items})
}

func (h *CatalogHandler) POIs(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeUnavailable(w, "CATALOG_UNAVAILABLE", "catalog is unavailable")
		return
	}

	lat, err := queryFloat(r, "lat")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}
	if (lat == nil) != (lon == nil) {
		writeBadRequest(w, "VALIDATION_ERROR", "lat and lon must be given together")
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	country := chi.URLParam(r, "country")
	region := chi.URLParam(r, "region")
	lang := r.URL.Query().Get("lang")
	profile, hasProfile := h.profile(r)

	items := make([]dto.POIItem, 0)
	if lat != nil {
		nearby, err := h.catalog.Nearby(r.Context(), country, region, lang, *lat, *lon, limit)
		if errors.Is(err, catalogsvc.ErrNotFound) {
			nearby, err = nil, nil
		}
		if err != nil {
			handleCatalogError(w, err)
			return
		}
		for _, n := range nearby {
			distance := n.DistanceM
			items = append(items, poiItem(n.POI, &distance, profile, hasProfile))
		}
	} else {
		pois, err := h.catalog.POIs(r.Context(), country, region, lang)
		if errors.Is(err, catalogsvc.ErrNotFound) {
			pois, err = nil, nil
		}
		if err != nil {
			handleCatalogError(w, err)
			return
		}
		if limit > 0 && limit < len(pois) {
			pois = pois[:limit]
		}
		for _, poi := range pois {
			items = append(items, poiItem(poi, nil, profile, hasProfile))
		}
	}

	httperrors.Write(w, http.StatusOK, dto.POIsResponse{Items: items})
}

func (h *CatalogHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if h.geo == nil {
		writeUnavailable(w, "CATALOG_UNAVAILABLE", "catalog is unavailable")
		return
	}

	lat, err := queryFloat(r, "lat")
	if err != nil || lat == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "lat is required")
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil || lon == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "lon is required")
		return
	}

	region, distance, err := h.geo.ResolveRegion(r.Context(), chi.URLParam(r, "country"), *lat, *lon)
	if err != nil {
		switch {
		case errors.Is(err, geosvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid lat/lon")
		case errors.Is(err, geosvc.ErrNoRegions):
			writeNotFound(w, "REGION_NOT_FOUND", "country has no regions")
		default:
			handleCatalogError(w, err)
		}
		return
	}

	profile, hasProfile := h.profile(r)
	httperrors.Write(w, http.StatusOK, dto.LocateResponse{
		Region:    region,
		DistanceM: distance,
		Unlocked:  hasProfile && profile.HasRegion(region.CountryCode, region.Code),
	})
}

func (h *CatalogHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.unlock == nil {
		writeInternal(w, "UNLOCK_SERVICE_UNAVAILABLE", "unlock service is unavailable")
		return
	}

	result, err := h.unlock.UnlockRegion(r.Context(), identity.UID, chi.URLParam(r, "country"), chi.URLParam(r, "region"))
	if err != nil {
		switch {
		case errors.Is(err, unlocksvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "country and region are required")
		case errors.Is(err, unlocksvc.ErrAlreadyUnlocked):
			writeConflict(w, "ALREADY_UNLOCKED", "region is already unlocked")
		case errors.Is(err, unlocksvc.ErrInsufficientFunds):
			httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
				Code:    "INSUFFICIENT_GP",
				Message: "not enough guide points",
			})
		case errors.Is(err, profilesvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
		default:
			handleCatalogError(w, err)
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnlockResponse{
		OK:          true,
		CountryCode: result.CountryCode,
		RegionCode:  result.RegionCode,
		Method:      result.Method,
		CostGP:      result.CostGP,
		CurrentGP:   result.Profile.CurrentGP,
	})
}

// profile decorates listings; a missing profile only drops the per-user flags.
func (h *CatalogHandler) profile(r *http.Request) (model.UserProfile, bool) {
	if h.profiles == nil {
		return model.UserProfile{}, false
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		return model.UserProfile{}, false
	}
	profile, err := h.profiles.Get(r.Context(), identity.UID)
	if err != nil {
		return model.UserProfile{}, false
	}
	return profile, true
}

func poiItem(poi model.POI, distance *float64, profile model.UserProfile, hasProfile bool) dto.POIItem {
	return dto.POIItem{
		POI:       poi,
		DistanceM: distance,
		Visited:   hasProfile && profile.HasVisited(poi.ID),
		Favorite:  hasProfile && profile.IsFavorite(poi.ID),
	}
}

func handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalogsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid catalog request")
	case errors.Is(err, catalogsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "catalog entry not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to load catalog")
	}
}
