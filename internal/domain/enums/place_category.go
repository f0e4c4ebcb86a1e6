package enums

import "strings"

type PlaceCategory string

const (
	PlaceCategoryMuseum    PlaceCategory = "museum"
	PlaceCategoryCastle    PlaceCategory = "castle"
	PlaceCategoryChurch    PlaceCategory = "church"
	PlaceCategoryMonument  PlaceCategory = "monument"
	PlaceCategoryPark      PlaceCategory = "park"
	PlaceCategoryNature    PlaceCategory = "nature"
	PlaceCategoryViewpoint PlaceCategory = "viewpoint"
	PlaceCategoryFood      PlaceCategory = "food"
	PlaceCategoryOther     PlaceCategory = "other"
)

// PlaceCategories is the full, ordered set of categories markers are rendered for.
var PlaceCategories = []PlaceCategory{
	PlaceCategoryMuseum,
	PlaceCategoryCastle,
	PlaceCategoryChurch,
	PlaceCategoryMonument,
	PlaceCategoryPark,
	PlaceCategoryNature,
	PlaceCategoryViewpoint,
	PlaceCategoryFood,
	PlaceCategoryOther,
}

// ParsePlaceCategory maps unknown or empty tags to PlaceCategoryOther.
func ParsePlaceCategory(raw string) PlaceCategory {
	value := PlaceCategory(strings.ToLower(strings.TrimSpace(raw)))
	for _, category := range PlaceCategories {
		if category == value {
			return category
		}
	}
	return PlaceCategoryOther
}
