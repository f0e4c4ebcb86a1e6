package model

import "github.com/ssmoliagin/weekendguide/internal/domain/enums"

type LocalizedText map[string]string

// In returns the text for lang, falling back to en and then to any value.
func (t LocalizedText) In(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t["en"]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

type Country struct {
	Code        string        `json:"code"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	ImageURL    string        `json:"image_url"`
}

type Region struct {
	Code        string        `json:"code"`
	CountryCode string        `json:"country_code"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description"`
	ImageURL    string        `json:"image_url"`
	Lat         float64       `json:"lat"`
	Lon         float64       `json:"lon"`
	CostGP      int           `json:"cost_gp"`
	POICount    int           `json:"poi_count"`
}

type POI struct {
	ID          string              `json:"id"`
	CountryCode string              `json:"country_code"`
	RegionCode  string              `json:"region_code"`
	Lat         float64             `json:"lat"`
	Lon         float64             `json:"lon"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    enums.PlaceCategory `json:"category"`
	ImageURL    string              `json:"image_url"`
	WikiTitle   string              `json:"wiki_title"`
}
