package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrDevLoginOff     = errors.New("dev login is disabled")
)

type SessionRecord struct {
	SID       string
	UID       string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UID       string
	SID       string
	ExpiresAt time.Time
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	UID           string
	NewProfile    bool
}
