package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/config"
	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
)

func newAuthService(t *testing.T) *authsvc.Service {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	service := authsvc.NewService(authsvc.NewJWTManager("test-secret", 15*time.Minute), redrepo.NewSessionRepo(client), time.Hour)
	service.EnableDevLogin(true)
	return service
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	auth := newAuthService(t)
	tokens, err := auth.LoginDev(context.Background(), "anna", "anna@example.com")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr := httptest.NewRecorder()

	AuthMiddleware(auth, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok || identity.UID != tokens.UID || identity.SID == "" {
			t.Fatalf("unexpected identity: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	auth := newAuthService(t)
	mw := AuthMiddleware(auth, zap.NewNop())
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without a valid token")
	})

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		mw(next).ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: unexpected status: got %d want %d", header, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestAuthMiddlewareRejectsTokenAfterLogout(t *testing.T) {
	auth := newAuthService(t)
	tokens, err := auth.LoginDev(context.Background(), "anna", "")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	if err := auth.LogoutAll(context.Background(), tokens.UID); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr := httptest.NewRecorder()
	AuthMiddleware(auth, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called with a revoked session")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareAcceptsQueryTokenOnlyForWebsocket(t *testing.T) {
	auth := newAuthService(t)
	tokens, err := auth.LoginDev(context.Background(), "anna", "")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	mw := AuthMiddleware(auth, zap.NewNop())
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	plain := httptest.NewRequest(http.MethodGet, "/v1/me?access_token="+tokens.AccessToken, nil)
	rr := httptest.NewRecorder()
	mw(ok).ServeHTTP(rr, plain)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("query token on plain request: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	upgrade := httptest.NewRequest(http.MethodGet, "/v1/notifications/ws?access_token="+tokens.AccessToken, nil)
	upgrade.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	mw(ok).ServeHTTP(rr, upgrade)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("query token on upgrade: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRoutesProtectUserEndpoints(t *testing.T) {
	auth := newAuthService(t)
	r := newTestRouter(auth)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: got %d want %d", rr.Code, http.StatusOK)
	}

	for _, target := range []string{"/v1/me", "/v1/catalog/countries", "/v1/billing/subscription", "/v1/markers/castle"} {
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: got %d want %d", target, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestRoutesReportMissingServices(t *testing.T) {
	auth := newAuthService(t)
	tokens, err := auth.LoginDev(context.Background(), "anna", "")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	r := newTestRouter(auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/billing/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code < http.StatusInternalServerError {
		t.Fatalf("expected a server error without billing service, got %d", rr.Code)
	}
}

func newTestRouter(auth *authsvc.Service) http.Handler {
	r := chi.NewRouter()
	ApplyMiddlewares(r, config.Default().CORS, zap.NewNop())
	RegisterRoutes(r, Dependencies{AuthService: auth, Logger: zap.NewNop()})
	return r
}
