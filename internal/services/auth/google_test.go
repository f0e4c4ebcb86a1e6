package auth

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/idtoken"
)

func TestGoogleVerifierMapsClaims(t *testing.T) {
	v := NewGoogleVerifier("client-1")
	v.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "client-1" {
			t.Fatalf("unexpected audience: %s", audience)
		}
		return &idtoken.Payload{
			Subject: "108",
			Claims: map[string]interface{}{
				"email":          "a@example.com",
				"email_verified": true,
				"name":           "Ana",
				"picture":        "https://lh3.example.com/a.jpg",
			},
		}, nil
	}

	identity, err := v.Verify(context.Background(), "raw")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UID != "google:108" || identity.Email != "a@example.com" || identity.DisplayName != "Ana" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestGoogleVerifierRejectsUnverifiedEmail(t *testing.T) {
	v := NewGoogleVerifier("client-1")
	v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{
			Subject: "108",
			Claims:  map[string]interface{}{"email_verified": false},
		}, nil
	}

	if _, err := v.Verify(context.Background(), "raw"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGoogleVerifierWrapsValidationFailure(t *testing.T) {
	v := NewGoogleVerifier("client-1")
	v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("audience mismatch")
	}

	if _, err := v.Verify(context.Background(), "raw"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
