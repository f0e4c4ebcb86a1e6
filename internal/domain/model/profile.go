package model

import (
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

type UserProfile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`

	Language             string      `json:"language"`
	Theme                enums.Theme `json:"theme"`
	Units                enums.Units `json:"units"`
	NotificationsEnabled bool        `json:"notifications_enabled"`

	CurrentGP int `json:"current_gp"`
	TotalGP   int `json:"total_gp"`
	SpentGP   int `json:"spent_gp"`

	PurchasedRegions []string             `json:"purchased_regions"`
	Collection       []CollectionEntry    `json:"collection"`
	Favorites        []string             `json:"favorites"`
	Visited          map[string]time.Time `json:"visited"`

	Subscribed        bool       `json:"subscribed"`
	SubscriptionToken string     `json:"subscription_token"`
	SubscriptionUntil *time.Time `json:"subscription_until"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CollectionEntry struct {
	CountryCode string    `json:"country_code"`
	RegionCode  string    `json:"region_code"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

// RegionKey is the identifier stored in PurchasedRegions.
func RegionKey(countryCode, regionCode string) string {
	return countryCode + "/" + regionCode
}

func (p *UserProfile) HasRegion(countryCode, regionCode string) bool {
	for _, entry := range p.Collection {
		if entry.CountryCode == countryCode && entry.RegionCode == regionCode {
			return true
		}
	}
	return false
}

func (p *UserProfile) IsFavorite(poiID string) bool {
	for _, id := range p.Favorites {
		if id == poiID {
			return true
		}
	}
	return false
}

func (p *UserProfile) HasVisited(poiID string) bool {
	_, ok := p.Visited[poiID]
	return ok
}

// SubscriptionActive treats a subscription without an end date as open-ended.
func (p *UserProfile) SubscriptionActive(now time.Time) bool {
	if !p.Subscribed {
		return false
	}
	if p.SubscriptionUntil == nil {
		return true
	}
	return p.SubscriptionUntil.After(now)
}
