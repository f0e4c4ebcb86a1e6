package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
)

func TestMeReturnsProfileWithWelcomeBonus(t *testing.T) {
	env := newTestEnv(t)
	uid := env.login(t, "anna")
	handler := NewMeHandler(env.profiles, env.unlock, env.visits)

	rr := httptest.NewRecorder()
	handler.Get(rr, newRequest(http.MethodGet, "/v1/me", "", uid, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var me dto.MeResponse
	decodeBody(t, rr, &me)
	if me.Profile.UID != uid || me.Profile.CurrentGP != 100 || me.Subscription.Active {
		t.Fatalf("unexpected me payload: %+v", me)
	}
}

func TestMeMissingProfileIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	handler := NewMeHandler(env.profiles, env.unlock, env.visits)

	rr := httptest.NewRecorder()
	handler.Get(rr, newRequest(http.MethodGet, "/v1/me", "", "dev:ghost", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPreferencesUpdateAndValidation(t *testing.T) {
	env := newTestEnv(t)
	uid := env.login(t, "anna")
	handler := NewMeHandler(env.profiles, env.unlock, env.visits)

	rr := httptest.NewRecorder()
	handler.Preferences(rr, newRequest(http.MethodPut, "/v1/me/preferences", `{"language":"de","theme":"dark","notifications_enabled":false}`, uid, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("preferences failed: %d %s", rr.Code, rr.Body.String())
	}
	var me dto.MeResponse
	decodeBody(t, rr, &me)
	if me.Profile.Language != "de" || string(me.Profile.Theme) != "dark" || me.Profile.NotificationsEnabled {
		t.Fatalf("unexpected preferences: %+v", me.Profile)
	}

	rr = httptest.NewRecorder()
	handler.Preferences(rr, newRequest(http.MethodPut, "/v1/me/preferences", `{"theme":"neon"}`, uid, nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown theme, got %d", rr.Code)
	}
}

func TestToggleFavoriteFlipsState(t *testing.T) {
	env := newTestEnv(t)
	uid := env.login(t, "anna")
	handler := NewMeHandler(env.profiles, env.unlock, env.visits)
	params := map[string]string{"poi_id": "belvedere"}

	for i, want := range []bool{true, false} {
		rr := httptest.NewRecorder()
		handler.ToggleFavorite(rr, newRequest(http.MethodPost, "/v1/me/favorites/belvedere/toggle", "", uid, params))
		if rr.Code != http.StatusOK {
			t.Fatalf("toggle #%d failed: %d %s", i+1, rr.Code, rr.Body.String())
		}
		var res dto.FavoriteToggleResponse
		decodeBody(t, rr, &res)
		if res.Favorite != want {
			t.Fatalf("toggle #%d: got favorite=%v want %v", i+1, res.Favorite, want)
		}
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	uid := env.login(t, "anna")
	handler := NewMeHandler(env.profiles, env.unlock, env.visits)
	params := map[string]string{"flag": "onboarding_done"}

	rr := httptest.NewRecorder()
	handler.Flag(rr, newRequest(http.MethodGet, "/v1/me/flags/onboarding_done", "", uid, params))
	var res dto.FlagResponse
	decodeBody(t, rr, &res)
	if rr.Code != http.StatusOK || res.Value {
		t.Fatalf("unset flag must read false: %d %+v", rr.Code, res)
	}

	rr = httptest.NewRecorder()
	handler.SetFlag(rr, newRequest(http.MethodPut, "/v1/me/flags/onboarding_done", `{"value":true}`, uid, params))
	if rr.Code != http.StatusOK {
		t.Fatalf("set flag failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	handler.Flag(rr, newRequest(http.MethodGet, "/v1/me/flags/onboarding_done", "", uid, params))
	res = dto.FlagResponse{}
	decodeBody(t, rr, &res)
	if !res.Value {
		t.Fatalf("flag must read true after set: %+v", res)
	}

	rr = httptest.NewRecorder()
	handler.SetFlag(rr, newRequest(http.MethodPut, "/v1/me/flags/Bad%20Flag", `{"value":true}`, uid,
		map[string]string{"flag": "Bad Flag"}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed flag, got %d", rr.Code)
	}
}
