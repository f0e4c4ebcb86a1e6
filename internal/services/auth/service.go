package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	maxUIDLen = 128
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, uid string) error
}

// ProfileEnsurer creates the local profile on first sign-in.
type ProfileEnsurer interface {
	Ensure(ctx context.Context, identity rules.Identity) (bool, error)
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	verifier   IDTokenVerifier
	profiles   ProfileEnsurer
	devLogin   bool
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, refreshTTL time.Duration) *Service {
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}

	return &Service{
		jwt:        jwtManager,
		sessions:   sessions,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *Service) AttachVerifier(verifier IDTokenVerifier) {
	s.verifier = verifier
}

func (s *Service) AttachProfiles(profiles ProfileEnsurer) {
	s.profiles = profiles
}

func (s *Service) EnableDevLogin(enabled bool) {
	s.devLogin = enabled
}

func (s *Service) LoginGoogle(ctx context.Context, idToken string) (AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if s.verifier == nil {
		return AuthResult{}, fmt.Errorf("id token verifier is not configured")
	}

	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidInput) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("verify id token: %w", err)
	}

	return s.login(ctx, identity)
}

// LoginDev signs a user in without a provider token. Local and test setups only.
func (s *Service) LoginDev(ctx context.Context, uid, email string) (AuthResult, error) {
	if !s.devLogin {
		return AuthResult{}, ErrDevLoginOff
	}
	uid = strings.TrimSpace(uid)
	if uid == "" || len(uid) > maxUIDLen {
		return AuthResult{}, ErrInvalidInput
	}

	return s.login(ctx, rules.Identity{
		UID:   "dev:" + uid,
		Email: strings.TrimSpace(email),
	})
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UID, session.SID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		UID:           session.UID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, uid); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UID != claims.UID {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) login(ctx context.Context, identity rules.Identity) (AuthResult, error) {
	created := false
	if s.profiles != nil {
		var err error
		created, err = s.profiles.Ensure(ctx, identity)
		if err != nil {
			return AuthResult{}, fmt.Errorf("ensure profile: %w", err)
		}
	}

	result, err := s.issueForUser(ctx, identity.UID)
	if err != nil {
		return AuthResult{}, err
	}
	result.NewProfile = created
	return result, nil
}

func (s *Service) issueForUser(ctx context.Context, uid string) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	session := SessionRecord{
		SID:       sessionID,
		UID:       uid,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(uid, sessionID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		UID:           uid,
	}, nil
}
