package dto

type GoogleAuthRequest struct {
	IDToken string `json:"id_token"`
}

type DevAuthRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthMeResponse struct {
	UID        string `json:"uid"`
	NewProfile bool   `json:"new_profile"`
}

type AuthTokensResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresInSec int64          `json:"expires_in_sec"`
	Me           AuthMeResponse `json:"me"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
