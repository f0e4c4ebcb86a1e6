package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssmoliagin/weekendguide/internal/transport/http/dto"
)

func TestDevLoginIssuesTokensAndCreatesProfileOnce(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuthHandler(env.auth)

	rr := httptest.NewRecorder()
	handler.Dev(rr, newRequest(http.MethodPost, "/v1/auth/dev", `{"uid":"anna","email":"anna@example.com"}`, "", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var first dto.AuthTokensResponse
	decodeBody(t, rr, &first)
	if first.AccessToken == "" || first.RefreshToken == "" || first.ExpiresInSec <= 0 {
		t.Fatalf("expected tokens, got %+v", first)
	}
	if first.Me.UID != "dev:anna" || !first.Me.NewProfile {
		t.Fatalf("unexpected me payload: %+v", first.Me)
	}

	rr = httptest.NewRecorder()
	handler.Dev(rr, newRequest(http.MethodPost, "/v1/auth/dev", `{"uid":"anna"}`, "", nil))
	var second dto.AuthTokensResponse
	decodeBody(t, rr, &second)
	if second.Me.NewProfile {
		t.Fatalf("second login must reuse the existing profile")
	}

	rr = httptest.NewRecorder()
	handler.Refresh(rr, newRequest(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+first.RefreshToken+`"}`, "", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rr.Code, rr.Body.String())
	}
}

func TestDevLoginDisabledIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.auth.EnableDevLogin(false)
	handler := NewAuthHandler(env.auth)

	rr := httptest.NewRecorder()
	handler.Dev(rr, newRequest(http.MethodPost, "/v1/auth/dev", `{"uid":"anna"}`, "", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
	if code := errorCode(t, rr); code != "DEV_LOGIN_DISABLED" {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuthHandler(env.auth)

	rr := httptest.NewRecorder()
	handler.Refresh(rr, newRequest(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"nope"}`, "", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuthHandler(env.auth)

	rr := httptest.NewRecorder()
	handler.Google(rr, newRequest(http.MethodPost, "/v1/auth/google", `{"id_token":"x","role":"admin"}`, "", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
