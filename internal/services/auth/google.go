package auth

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
)

type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (rules.Identity, error)
}

// GoogleVerifier validates Google Sign-In ID tokens against the app's OAuth client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: strings.TrimSpace(clientID),
		validate: idtoken.Validate,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (rules.Identity, error) {
	if v == nil || v.clientID == "" {
		return rules.Identity{}, fmt.Errorf("google client id is not configured")
	}
	if strings.TrimSpace(rawIDToken) == "" {
		return rules.Identity{}, ErrInvalidInput
	}

	payload, err := v.validate(ctx, rawIDToken, v.clientID)
	if err != nil {
		return rules.Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return identityFromClaims(payload.Subject, payload.Claims)
}

func identityFromClaims(subject string, claims map[string]interface{}) (rules.Identity, error) {
	if strings.TrimSpace(subject) == "" {
		return rules.Identity{}, ErrUnauthorized
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return rules.Identity{}, ErrUnauthorized
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	return rules.Identity{
		UID:         "google:" + subject,
		Email:       email,
		DisplayName: name,
		PhotoURL:    picture,
	}, nil
}
