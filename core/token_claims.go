package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultExpiringSoonWindow = 5 * time.Minute
	DefaultRefreshLeadWindow  = 2 * time.Minute
)

// TokenClaims holds the claims read from a bearer token payload. The
// signature is never checked, so the values are only hints for scheduling
// refreshes and must not be used for authorization decisions.
type TokenClaims struct {
	Subject   string
	ExpiresAt *time.Time
	IssuedAt  *time.Time
}

var unverifiedParser = jwt.NewParser()

func DecodeTokenClaims(token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, fmt.Errorf("core: token is required")
	}
	parsed, _, err := unverifiedParser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, fmt.Errorf("core: token is malformed: %w", err)
	}

	claims := TokenClaims{}
	if subject, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = subject
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return TokenClaims{}, fmt.Errorf("core: token expiry claim is invalid: %w", err)
	}
	if exp != nil {
		expiresAt := exp.Time.UTC()
		claims.ExpiresAt = &expiresAt
	}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		issuedAt := iat.Time.UTC()
		claims.IssuedAt = &issuedAt
	}
	return claims, nil
}

// IsTokenExpired treats malformed tokens and tokens without an expiry as
// expired.
func IsTokenExpired(token string, now time.Time) bool {
	claims, err := DecodeTokenClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	if now.IsZero() {
		now = time.Now()
	}
	return !claims.ExpiresAt.After(now.UTC())
}

// TokenState captures the lifecycle of the stored credential pair.
type TokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	CanAutoRefresh  bool
	IsExpired       bool
	IsExpiringSoon  bool
}

func ResolveTokenState(now time.Time, cred Credential, expiringSoonWindow time.Duration) TokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultExpiringSoonWindow
	}

	state := TokenState{
		HasAccessToken:  strings.TrimSpace(cred.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(cred.RefreshToken) != "",
	}
	state.CanAutoRefresh = state.HasRefreshToken && !IsTokenExpired(cred.RefreshToken, now)

	expiresAt := cred.ExpiresAt
	if expiresAt == nil && state.HasAccessToken {
		if claims, err := DecodeTokenClaims(cred.AccessToken); err == nil {
			expiresAt = claims.ExpiresAt
		}
	}
	if !state.HasAccessToken {
		return state
	}
	if expiresAt == nil {
		state.IsExpired = true
		return state
	}
	exp := expiresAt.UTC()
	state.ExpiresAt = &exp
	if !exp.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !exp.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldRefresh reports whether a refresh should run before the access token
// lapses.
func ShouldRefresh(now time.Time, state TokenState, leadWindow time.Duration) bool {
	if !state.CanAutoRefresh {
		return false
	}
	if !state.HasAccessToken || state.IsExpired {
		return true
	}
	if state.ExpiresAt == nil {
		return false
	}
	if leadWindow <= 0 {
		leadWindow = DefaultRefreshLeadWindow
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return !state.ExpiresAt.After(now.UTC().Add(leadWindow))
}
