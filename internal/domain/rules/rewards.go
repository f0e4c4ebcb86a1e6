package rules

import (
	"strings"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

type Rewards struct {
	byCategory map[enums.PlaceCategory]int
	fallback   int
}

func NewRewards(byCategory map[string]int, fallback int) Rewards {
	mapped := make(map[enums.PlaceCategory]int, len(byCategory))
	for raw, amount := range byCategory {
		if amount <= 0 {
			continue
		}
		mapped[enums.ParsePlaceCategory(raw)] = amount
	}
	if fallback < 0 {
		fallback = 0
	}
	return Rewards{byCategory: mapped, fallback: fallback}
}

// For returns the GP credited for the first visit of a POI in category.
func (r Rewards) For(category enums.PlaceCategory) int {
	if amount, ok := r.byCategory[category]; ok {
		return amount
	}
	return r.fallback
}

// RegionCost prefers the catalog price and falls back to the configured default.
func RegionCost(catalogCost, defaultCost int) int {
	if catalogCost > 0 {
		return catalogCost
	}
	if defaultCost < 0 {
		return 0
	}
	return defaultCost
}

func NormalizeCode(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
