package dto

import (
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type MeResponse struct {
	Profile      model.UserProfile    `json:"profile"`
	Subscription SubscriptionResponse `json:"subscription"`
}

type FavoriteToggleResponse struct {
	POIID    string `json:"poi_id"`
	Favorite bool   `json:"favorite"`
}

type CollectionResponse struct {
	Items []model.CollectionEntry `json:"items"`
}

type VisitedItem struct {
	POIID     string    `json:"poi_id"`
	VisitedAt time.Time `json:"visited_at"`
}

type VisitedResponse struct {
	Items []VisitedItem `json:"items"`
}
