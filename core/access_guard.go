package core

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type GuardDecision string

const (
	GuardAllow         GuardDecision = "allow"
	GuardRedirectLogin GuardDecision = "redirect_login"
	GuardRedirectHome  GuardDecision = "redirect_home"
)

// SessionView is the read side of a session used for access decisions.
type SessionView interface {
	IsAccessTokenValid(ctx context.Context) bool
	HasAnyRole(roles ...string) bool
}

// AccessGuard decides whether the current session may reach a resource that
// requires one of a set of roles.
type AccessGuard struct {
	session SessionView
}

func NewAccessGuard(session SessionView) *AccessGuard {
	return &AccessGuard{session: session}
}

// Check with no roles only requires a valid session.
func (g *AccessGuard) Check(ctx context.Context, roles ...string) GuardDecision {
	if g == nil || g.session == nil || !g.session.IsAccessTokenValid(ctx) {
		return GuardRedirectLogin
	}
	if len(roles) == 0 {
		return GuardAllow
	}
	if g.session.HasAnyRole(roles...) {
		return GuardAllow
	}
	return GuardRedirectHome
}

// Require is Check expressed as an error.
func (g *AccessGuard) Require(ctx context.Context, roles ...string) error {
	switch g.Check(ctx, roles...) {
	case GuardAllow:
		return nil
	case GuardRedirectLogin:
		return newError("authentication required", goerrors.CategoryAuth, ErrorUnauthorized)
	default:
		return newError("insufficient role", goerrors.CategoryAuthz, ErrorForbidden)
	}
}
