package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	billingsvc "github.com/ssmoliagin/weekendguide/internal/services/billing"
	catalogsvc "github.com/ssmoliagin/weekendguide/internal/services/catalog"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
	httperrors "github.com/ssmoliagin/weekendguide/internal/transport/http/errors"
)

type BillingHandler struct {
	service *billingsvc.Service
}

func NewBillingHandler(service *billingsvc.Service) *BillingHandler {
	return &BillingHandler{service: service}
}

func (h *BillingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	var req dto.BillingConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.Confirm(r.Context(), identity.UID, billingsvc.ConfirmInput{
		Provider:      req.Provider,
		SKU:           req.SKU,
		PurchaseToken: req.PurchaseToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, billingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase payload")
		case errors.Is(err, billingsvc.ErrUnsupportedSKU):
			writeBadRequest(w, "UNSUPPORTED_SKU", "unsupported sku")
		case errors.Is(err, billingsvc.ErrUnsupportedProvider):
			writeBadRequest(w, "UNSUPPORTED_PROVIDER", "unsupported provider")
		case errors.Is(err, billingsvc.ErrTokenOwnedByOther):
			writeConflict(w, "PURCHASE_TOKEN_CONFLICT", "purchase token belongs to another account")
		case errors.Is(err, catalogsvc.ErrNotFound):
			writeNotFound(w, "REGION_NOT_FOUND", "purchased region not found")
		case errors.Is(err, profilesvc.ErrNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to confirm purchase")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BillingConfirmResponse{
		OK:         true,
		PurchaseID: result.PurchaseID,
		SKU:        string(result.SKU),
		Kind:       result.Kind,
		Status:     result.Status,
		Idempotent: result.Idempotent,
		CreditedGP: result.CreditedGP,
		CurrentGP:  result.Profile.CurrentGP,
		Subscribed: result.Profile.Subscribed,
	})
}

func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BILLING_SERVICE_UNAVAILABLE", "billing service is unavailable")
		return
	}

	snapshot, err := h.service.Subscription(r.Context(), identity.UID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SubscriptionResponse{
		Active: snapshot.Active,
		Until:  snapshot.Until,
	})
}
