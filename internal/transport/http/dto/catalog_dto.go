package dto

import (
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type CountriesResponse struct {
	Items []model.Country `json:"items"`
}

type RegionItem struct {
	model.Region
	Unlocked bool `json:"unlocked"`
}

type RegionsResponse struct {
	Items []RegionItem `json:"items"`
}

type POIItem struct {
	model.POI
	DistanceM *float64 `json:"distance_m,omitempty"`
	Visited   bool     `json:"visited"`
	Favorite  bool     `json:"favorite"`
}

type POIsResponse struct {
	Items []POIItem `json:"items"`
}

type UnlockResponse struct {
	OK          bool   `json:"ok"`
	CountryCode string `json:"country_code"`
	RegionCode  string `json:"region_code"`
	Method      string `json:"method"`
	CostGP      int    `json:"cost_gp"`
	CurrentGP   int    `json:"current_gp"`
}

type VisitRequest struct {
	CountryCode string   `json:"country_code"`
	RegionCode  string   `json:"region_code"`
	POIID       string   `json:"poi_id"`
	Lang        string   `json:"lang"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type VisitResponse struct {
	OK             bool      `json:"ok"`
	POIID          string    `json:"poi_id"`
	AlreadyVisited bool      `json:"already_visited"`
	RewardGP       int       `json:"reward_gp"`
	DistanceM      float64   `json:"distance_m"`
	VisitedAt      time.Time `json:"visited_at"`
	CurrentGP      int       `json:"current_gp"`
	TotalGP        int       `json:"total_gp"`
}
