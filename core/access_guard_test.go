package core

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestAccessGuard_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	signedIn := func(t *testing.T, roles ...string) *SessionStore {
		t.Helper()
		store := NewSessionStore(nil)
		if err := store.SetCredentials(ctx, mintToken(t, "u", now.Add(time.Hour)), "refresh"); err != nil {
			t.Fatalf("seed credentials: %v", err)
		}
		profile := &UserProfile{Username: "u"}
		for _, role := range roles {
			profile.Roles = append(profile.Roles, Role{Name: role})
		}
		store.SetCurrentUser(profile)
		return store
	}

	t.Run("anonymous goes to login", func(t *testing.T) {
		guard := NewAccessGuard(NewSessionStore(nil))
		if got := guard.Check(ctx); got != GuardRedirectLogin {
			t.Fatalf("expected %s, got %s", GuardRedirectLogin, got)
		}
	})

	t.Run("expired token goes to login", func(t *testing.T) {
		store := NewSessionStore(nil)
		_ = store.SetCredentials(ctx, mintToken(t, "u", now.Add(-time.Minute)), "refresh")
		store.SetCurrentUser(&UserProfile{Roles: []Role{{Name: RoleAdmin}}})
		if got := NewAccessGuard(store).Check(ctx, RoleAdmin); got != GuardRedirectLogin {
			t.Fatalf("expected %s, got %s", GuardRedirectLogin, got)
		}
	})

	t.Run("no roles required", func(t *testing.T) {
		if got := NewAccessGuard(signedIn(t)).Check(ctx); got != GuardAllow {
			t.Fatalf("expected %s, got %s", GuardAllow, got)
		}
	})

	t.Run("matching role", func(t *testing.T) {
		guard := NewAccessGuard(signedIn(t, RoleModerator))
		if got := guard.Check(ctx, RoleModerator, RoleAdmin); got != GuardAllow {
			t.Fatalf("expected %s, got %s", GuardAllow, got)
		}
	})

	t.Run("missing role goes home", func(t *testing.T) {
		guard := NewAccessGuard(signedIn(t, RoleStudent))
		if got := guard.Check(ctx, RoleAdmin); got != GuardRedirectHome {
			t.Fatalf("expected %s, got %s", GuardRedirectHome, got)
		}
	})
}

func TestAccessGuard_RequireMapsDecisionToError(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(nil)
	guard := NewAccessGuard(store)

	var rich *goerrors.Error
	err := guard.Require(ctx)
	if !goerrors.As(err, &rich) || rich.TextCode != ErrorUnauthorized {
		t.Fatalf("expected %s, got %v", ErrorUnauthorized, err)
	}

	if err := store.SetCredentials(ctx, mintToken(t, "u", time.Now().Add(time.Hour)), ""); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	store.SetCurrentUser(&UserProfile{Roles: []Role{{Name: RoleStudent}}})
	err = guard.Require(ctx, RoleAdmin)
	if !goerrors.As(err, &rich) || rich.TextCode != ErrorForbidden {
		t.Fatalf("expected %s, got %v", ErrorForbidden, err)
	}
	if err := guard.Require(ctx, RoleStudent); err != nil {
		t.Fatalf("expected student to pass, got %v", err)
	}
}
