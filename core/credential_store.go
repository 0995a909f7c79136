package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var errStorageKeyRequired = errors.New("core: storage key is required")

// SessionStore keeps the credential pair in a KeyValueStorage under two fixed
// keys and caches the signed-in user profile in memory.
type SessionStore struct {
	storage         KeyValueStorage
	accessTokenKey  string
	refreshTokenKey string
	nowFn           func() time.Time

	mu   sync.RWMutex
	user *UserProfile
}

type SessionStoreOption func(*SessionStore)

func WithStorageKeys(accessTokenKey string, refreshTokenKey string) SessionStoreOption {
	return func(s *SessionStore) {
		if key := strings.TrimSpace(accessTokenKey); key != "" {
			s.accessTokenKey = key
		}
		if key := strings.TrimSpace(refreshTokenKey); key != "" {
			s.refreshTokenKey = key
		}
	}
}

func WithSessionClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.nowFn = now
		}
	}
}

func NewSessionStore(storage KeyValueStorage, opts ...SessionStoreOption) *SessionStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	store := &SessionStore{
		storage:         storage,
		accessTokenKey:  DefaultAccessTokenKey,
		refreshTokenKey: DefaultRefreshTokenKey,
		nowFn:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *SessionStore) GetAccessToken(ctx context.Context) (string, error) {
	return s.read(ctx, s.accessTokenKey)
}

func (s *SessionStore) GetRefreshToken(ctx context.Context) (string, error) {
	return s.read(ctx, s.refreshTokenKey)
}

func (s *SessionStore) read(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: session store is nil")
	}
	value, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("core: read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (s *SessionStore) SetCredentials(ctx context.Context, access string, refresh string) error {
	if s == nil {
		return fmt.Errorf("core: session store is nil")
	}
	access = strings.TrimSpace(access)
	if access == "" {
		return fmt.Errorf("core: access token is required")
	}
	if err := s.storage.Set(ctx, s.accessTokenKey, access); err != nil {
		return fmt.Errorf("core: write %s: %w", s.accessTokenKey, err)
	}
	if refresh = strings.TrimSpace(refresh); refresh != "" {
		if err := s.storage.Set(ctx, s.refreshTokenKey, refresh); err != nil {
			return fmt.Errorf("core: write %s: %w", s.refreshTokenKey, err)
		}
	}
	return nil
}

func (s *SessionStore) ClearCredentials(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("core: session store is nil")
	}
	s.SetCurrentUser(nil)
	if err := s.storage.Delete(ctx, s.accessTokenKey, s.refreshTokenKey); err != nil {
		return fmt.Errorf("core: clear credentials: %w", err)
	}
	return nil
}

// Credential returns the stored pair with the access expiry decoded from the
// token when possible.
func (s *SessionStore) Credential(ctx context.Context) (Credential, error) {
	access, err := s.GetAccessToken(ctx)
	if err != nil {
		return Credential{}, err
	}
	refresh, err := s.GetRefreshToken(ctx)
	if err != nil {
		return Credential{}, err
	}
	cred := Credential{AccessToken: access, RefreshToken: refresh}
	if access != "" {
		if claims, decodeErr := DecodeTokenClaims(access); decodeErr == nil {
			cred.ExpiresAt = claims.ExpiresAt
		}
	}
	return cred, nil
}

// IsAccessTokenValid reports whether an access token is stored and its expiry
// claim lies in the future. Storage errors and malformed tokens count as
// invalid.
func (s *SessionStore) IsAccessTokenValid(ctx context.Context) bool {
	access, err := s.GetAccessToken(ctx)
	if err != nil || access == "" {
		return false
	}
	return !IsTokenExpired(access, s.nowFn())
}

func (s *SessionStore) IsAuthenticated(ctx context.Context) bool {
	return s.IsAccessTokenValid(ctx)
}

func (s *SessionStore) TokenState(ctx context.Context, expiringSoonWindow time.Duration) (TokenState, error) {
	cred, err := s.Credential(ctx)
	if err != nil {
		return TokenState{}, err
	}
	return ResolveTokenState(s.nowFn(), cred, expiringSoonWindow), nil
}

func (s *SessionStore) Now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now()
	}
	return s.nowFn()
}

func (s *SessionStore) SetCurrentUser(user *UserProfile) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.user = user.clone()
	s.mu.Unlock()
}

func (s *SessionStore) CurrentUser() *UserProfile {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.clone()
}

func (s *SessionStore) HasRole(role string) bool {
	return s.CurrentUser().HasRole(role)
}

func (s *SessionStore) HasAnyRole(roles ...string) bool {
	return s.CurrentUser().HasAnyRole(roles...)
}

func (s *SessionStore) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

func (s *SessionStore) IsModerator() bool {
	return s.HasRole(RoleModerator)
}

func (s *SessionStore) IsModeratorOrAdmin() bool {
	return s.HasAnyRole(RoleModerator, RoleAdmin)
}

// ApplyAuthResponse stores the tokens of a sign-in or refresh response and
// replaces the cached profile.
func (s *SessionStore) ApplyAuthResponse(ctx context.Context, resp AuthResponse) error {
	if err := s.SetCredentials(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return err
	}
	s.SetCurrentUser(resp.Profile())
	return nil
}
