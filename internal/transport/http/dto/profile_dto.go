package dto

type PreferencesRequest struct {
	Language             *string `json:"language"`
	Theme                *string `json:"theme"`
	Units                *string `json:"units"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

type IdentityRequest struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

type FlagRequest struct {
	Value bool `json:"value"`
}

type FlagResponse struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}
