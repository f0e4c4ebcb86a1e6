package rules

import (
	"strings"
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

const DefaultLanguage = "en"

type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

func NewProfile(identity Identity, welcomeBonusGP int, now time.Time) model.UserProfile {
	if welcomeBonusGP < 0 {
		welcomeBonusGP = 0
	}
	now = now.UTC()
	return model.UserProfile{
		UID:                  identity.UID,
		Email:                strings.TrimSpace(identity.Email),
		DisplayName:          strings.TrimSpace(identity.DisplayName),
		PhotoURL:             strings.TrimSpace(identity.PhotoURL),
		Language:             DefaultLanguage,
		Theme:                enums.ThemeSystem,
		Units:                enums.UnitsKM,
		NotificationsEnabled: true,
		CurrentGP:            welcomeBonusGP,
		TotalGP:              welcomeBonusGP,
		PurchasedRegions:     []string{},
		Collection:           []model.CollectionEntry{},
		Favorites:            []string{},
		Visited:              map[string]time.Time{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// FillDefaults repairs records written by older clients with missing fields.
func FillDefaults(p *model.UserProfile) {
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	if !p.Theme.Valid() {
		p.Theme = enums.ThemeSystem
	}
	if !p.Units.Valid() {
		p.Units = enums.UnitsKM
	}
	if p.PurchasedRegions == nil {
		p.PurchasedRegions = []string{}
	}
	if p.Collection == nil {
		p.Collection = []model.CollectionEntry{}
	}
	if p.Favorites == nil {
		p.Favorites = []string{}
	}
	if p.Visited == nil {
		p.Visited = map[string]time.Time{}
	}
}

// NormalizeLanguage accepts "de", "DE" or "de-AT" and returns "de".
func NormalizeLanguage(raw string) (string, bool) {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if base, _, ok := strings.Cut(lang, "-"); ok {
		lang = base
	}
	if len(lang) != 2 {
		return "", false
	}
	for _, r := range lang {
		if r < 'a' || r > 'z' {
			return "", false
		}
	}
	return lang, true
}
