package enums

import "strings"

type PurchaseSKU string

const (
	PurchaseSKUGPPackSmall  PurchaseSKU = "gp_pack_small"
	PurchaseSKUGPPackMedium PurchaseSKU = "gp_pack_medium"
	PurchaseSKUGPPackLarge  PurchaseSKU = "gp_pack_large"
	PurchaseSKUPremiumMonth PurchaseSKU = "premium_month"
	PurchaseSKUPremiumYear  PurchaseSKU = "premium_year"

	// RegionSKUPrefix prefixes one-time region unlock SKUs: region_<country>.<region>.
	RegionSKUPrefix    = "region_"
	RegionSKUSeparator = "."
)

type PurchaseProvider string

const (
	ProviderGooglePlay PurchaseProvider = "google_play"
	ProviderAppStore   PurchaseProvider = "app_store"
	ProviderDev        PurchaseProvider = "dev"
)

func ParseProvider(raw string) (PurchaseProvider, bool) {
	switch p := PurchaseProvider(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProviderGooglePlay, ProviderAppStore, ProviderDev:
		return p, true
	default:
		return "", false
	}
}
