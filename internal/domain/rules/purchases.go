package rules

import (
	"strings"
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

// GPForSKU returns the GP credited by a consumable pack.
func GPForSKU(sku enums.PurchaseSKU) (int, bool) {
	switch sku {
	case enums.PurchaseSKUGPPackSmall:
		return 100, true
	case enums.PurchaseSKUGPPackMedium:
		return 500, true
	case enums.PurchaseSKUGPPackLarge:
		return 1500, true
	default:
		return 0, false
	}
}

func SubscriptionDuration(sku enums.PurchaseSKU) (time.Duration, bool) {
	switch sku {
	case enums.PurchaseSKUPremiumMonth:
		return 30 * 24 * time.Hour, true
	case enums.PurchaseSKUPremiumYear:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ParseRegionSKU splits region_<country>.<region>. Catalog codes never contain '.'.
func ParseRegionSKU(sku enums.PurchaseSKU) (string, string, bool) {
	raw := string(sku)
	if !strings.HasPrefix(raw, enums.RegionSKUPrefix) {
		return "", "", false
	}
	country, region, ok := strings.Cut(strings.TrimPrefix(raw, enums.RegionSKUPrefix), enums.RegionSKUSeparator)
	if !ok || country == "" || region == "" || strings.Contains(region, enums.RegionSKUSeparator) {
		return "", "", false
	}
	return country, region, true
}

func NormalizeSKU(raw string) (enums.PurchaseSKU, bool) {
	sku := enums.PurchaseSKU(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := GPForSKU(sku); ok {
		return sku, true
	}
	if _, ok := SubscriptionDuration(sku); ok {
		return sku, true
	}
	if _, _, ok := ParseRegionSKU(sku); ok {
		return sku, true
	}
	return "", false
}

// ExtendSubscription stacks the new period on top of a still-active one.
func ExtendSubscription(current *time.Time, now time.Time, period time.Duration) time.Time {
	start := now
	if current != nil && current.After(now) {
		start = *current
	}
	return start.Add(period).UTC()
}
