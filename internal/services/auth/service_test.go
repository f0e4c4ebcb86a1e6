package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	redrepo "github.com/ssmoliagin/weekendguide/internal/repo/redis"
	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
)

type fakeVerifier struct {
	identity rules.Identity
	err      error
}

func (f fakeVerifier) Verify(_ context.Context, _ string) (rules.Identity, error) {
	return f.identity, f.err
}

type fakeEnsurer struct {
	seen map[string]bool
}

func (f *fakeEnsurer) Ensure(_ context.Context, identity rules.Identity) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[identity.UID] {
		return false, nil
	}
	f.seen[identity.UID] = true
	return true, nil
}

func newAuthServiceForTest(t *testing.T) *authsvc.Service {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	return authsvc.NewService(jwtManager, redrepo.NewSessionRepo(client), 30*24*time.Hour)
}

func TestLoginGoogleEnsuresProfileAndIssuesTokens(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ensurer := &fakeEnsurer{}
	svc.AttachProfiles(ensurer)
	svc.AttachVerifier(fakeVerifier{identity: rules.Identity{UID: "google:123", Email: "a@example.com"}})

	result, err := svc.LoginGoogle(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("login google: %v", err)
	}
	if result.UID != "google:123" || !result.NewProfile {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}

	claims, err := svc.ValidateAccessToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UID != "google:123" {
		t.Fatalf("unexpected claims uid: %s", claims.UID)
	}

	again, err := svc.LoginGoogle(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.NewProfile {
		t.Fatalf("second login must not report a new profile")
	}
}

func TestLoginGoogleRejectsBadToken(t *testing.T) {
	svc := newAuthServiceForTest(t)
	svc.AttachVerifier(fakeVerifier{err: authsvc.ErrUnauthorized})

	if _, err := svc.LoginGoogle(context.Background(), "forged"); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.LoginGoogle(context.Background(), " "); !errors.Is(err, authsvc.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginDevRequiresFlag(t *testing.T) {
	svc := newAuthServiceForTest(t)

	if _, err := svc.LoginDev(context.Background(), "alice", ""); !errors.Is(err, authsvc.ErrDevLoginOff) {
		t.Fatalf("expected ErrDevLoginOff, got %v", err)
	}

	svc.EnableDevLogin(true)
	result, err := svc.LoginDev(context.Background(), "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	if result.UID != "dev:alice" {
		t.Fatalf("unexpected uid: %s", result.UID)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := newAuthServiceForTest(t)
	svc.EnableDevLogin(true)

	first, err := svc.LoginDev(context.Background(), "bob", "")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}
	if second.UID != "dev:bob" {
		t.Fatalf("unexpected uid after refresh: %s", second.UID)
	}

	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token must be rejected, got %v", err)
	}
}

func TestLogoutInvalidatesAccessToken(t *testing.T) {
	svc := newAuthServiceForTest(t)
	svc.EnableDevLogin(true)

	result, err := svc.LoginDev(context.Background(), "carol", "")
	if err != nil {
		t.Fatalf("dev login: %v", err)
	}
	claims, err := svc.ValidateAccessToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := svc.Logout(context.Background(), claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateAccessToken(context.Background(), result.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLogoutAllDropsEverySession(t *testing.T) {
	svc := newAuthServiceForTest(t)
	svc.EnableDevLogin(true)

	a, err := svc.LoginDev(context.Background(), "dave", "")
	if err != nil {
		t.Fatalf("login a: %v", err)
	}
	b, err := svc.LoginDev(context.Background(), "dave", "")
	if err != nil {
		t.Fatalf("login b: %v", err)
	}

	if err := svc.LogoutAll(context.Background(), "dev:dave"); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	for _, token := range []string{a.AccessToken, b.AccessToken} {
		if _, err := svc.ValidateAccessToken(context.Background(), token); !errors.Is(err, authsvc.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	}
}
