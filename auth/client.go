package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
	"github.com/goliatone/go-puthelp/transport"
)

// SessionRefresher runs a coordinated refresh of the stored session.
type SessionRefresher interface {
	Refresh(ctx context.Context) (core.Credential, error)
}

// Client talks to the portal authentication endpoints and keeps the local
// session in step with them.
type Client struct {
	rest      *transport.RESTClient
	session   *core.SessionStore
	refresher SessionRefresher
	paths     core.AuthConfig
	observer  *core.Observer
}

type Option func(*Client)

func WithPaths(paths core.AuthConfig) Option {
	return func(c *Client) {
		defaults := core.DefaultConfig().Auth
		c.paths = core.AuthConfig{
			SignInPath:         firstNonEmpty(paths.SignInPath, defaults.SignInPath),
			SignUpPath:         firstNonEmpty(paths.SignUpPath, defaults.SignUpPath),
			SignOutPath:        firstNonEmpty(paths.SignOutPath, defaults.SignOutPath),
			RefreshPath:        firstNonEmpty(paths.RefreshPath, defaults.RefreshPath),
			MePath:             firstNonEmpty(paths.MePath, defaults.MePath),
			ChangePasswordPath: firstNonEmpty(paths.ChangePasswordPath, defaults.ChangePasswordPath),
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(c *Client) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithSessionRefresher routes session restores through a shared refresh,
// normally the refresh coordinator.
func WithSessionRefresher(refresher SessionRefresher) Option {
	return func(c *Client) {
		if refresher != nil {
			c.refresher = refresher
		}
	}
}

func NewClient(rest *transport.RESTClient, session *core.SessionStore, opts ...Option) *Client {
	if session == nil {
		session = core.NewSessionStore(nil)
	}
	client := &Client{
		rest:     rest,
		session:  session,
		paths:    core.DefaultConfig().Auth,
		observer: core.NewObserver(nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

func (c *Client) Session() *core.SessionStore {
	if c == nil {
		return nil
	}
	return c.session
}

// SignIn exchanges credentials for a token pair and stores it. The full
// profile is fetched afterwards; failing to fetch it does not fail sign-in.
func (c *Client) SignIn(ctx context.Context, req core.SignInRequest) (resp core.AuthResponse, err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.Observe(ctx, startedAt, "auth_signin", err, map[string]any{"username": req.Username})
	}()
	if err := req.Validate(); err != nil {
		return core.AuthResponse{}, err
	}
	if err := c.ready(); err != nil {
		return core.AuthResponse{}, err
	}

	resp, err = transport.Call[core.AuthResponse](ctx, c.rest, transport.Request{
		Method: http.MethodPost,
		Path:   c.paths.SignInPath,
		Body:   req,
	})
	if err != nil {
		return core.AuthResponse{}, err
	}
	if err := c.session.ApplyAuthResponse(ctx, resp); err != nil {
		return core.AuthResponse{}, goerrors.Wrap(err, goerrors.CategoryInternal, "auth: store session").
			WithTextCode(core.ErrorInternal)
	}
	if _, profileErr := c.CurrentUser(ctx); profileErr != nil {
		c.observer.Warn(ctx, "profile fetch after sign-in failed", map[string]any{
			"username": resp.Username,
			"error":    profileErr.Error(),
		})
	}
	return resp, nil
}

func (c *Client) SignUp(ctx context.Context, req core.SignUpRequest) (resp core.MessageResponse, err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.Observe(ctx, startedAt, "auth_signup", err, map[string]any{"username": req.Username})
	}()
	if err := req.Validate(); err != nil {
		return core.MessageResponse{}, err
	}
	if err := c.ready(); err != nil {
		return core.MessageResponse{}, err
	}
	return transport.Call[core.MessageResponse](ctx, c.rest, transport.Request{
		Method: http.MethodPost,
		Path:   c.paths.SignUpPath,
		Body:   req,
	})
}

// SignOut tells the server to end the session and clears the local one.
// Local state is cleared even when the server call fails; the server error
// is still returned.
func (c *Client) SignOut(ctx context.Context) (err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.Observe(ctx, startedAt, "auth_signout", err, nil)
	}()
	var serverErr error
	if readyErr := c.ready(); readyErr != nil {
		serverErr = readyErr
	} else {
		_, serverErr = c.rest.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   c.paths.SignOutPath,
			Body:   map[string]any{},
		})
	}
	if clearErr := c.SignOutLocal(ctx); clearErr != nil && serverErr == nil {
		return clearErr
	}
	return serverErr
}

func (c *Client) SignOutLocal(ctx context.Context) error {
	return c.session.ClearCredentials(ctx)
}

// Refresh calls the refresh endpoint. It leaves the store alone; the refresh
// coordinator applies the result. Transport failures keep their code so the
// coordinator can retry them; every other failure is a refresh rejection.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (core.AuthResponse, error) {
	if err := c.ready(); err != nil {
		return core.AuthResponse{}, err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return core.AuthResponse{}, core.NewNoRefreshTokenError()
	}
	resp, err := transport.Call[core.AuthResponse](ctx, c.rest, transport.Request{
		Method: http.MethodPost,
		Path:   c.paths.RefreshPath,
		Body:   core.RefreshTokenRequest{RefreshToken: refreshToken},
	})
	if err != nil {
		return core.AuthResponse{}, refreshError(err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return core.AuthResponse{}, goerrors.New("auth: refresh response has no access token", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.ErrorRefreshFailed)
	}
	return resp, nil
}

func refreshError(err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == core.ErrorTransportFailure {
		return err
	}
	wrapped := goerrors.Wrap(err, goerrors.CategoryAuth, "auth: refresh rejected").
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorRefreshFailed)
	if richErr != nil && richErr.Code != 0 {
		wrapped.WithMetadata(map[string]any{"status_code": richErr.Code, "reason": richErr.Message})
	}
	return wrapped
}

// CurrentUser fetches the signed-in user's profile and caches it.
func (c *Client) CurrentUser(ctx context.Context) (*core.UserProfile, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	user, err := transport.Call[core.UserProfile](ctx, c.rest, transport.Request{
		Method: http.MethodGet,
		Path:   c.paths.MePath,
	})
	if err != nil {
		return nil, err
	}
	c.session.SetCurrentUser(&user)
	return c.session.CurrentUser(), nil
}

func (c *Client) ChangePassword(ctx context.Context, req core.ChangePasswordRequest) (resp core.MessageResponse, err error) {
	startedAt := time.Now()
	defer func() {
		c.observer.Observe(ctx, startedAt, "auth_change_password", err, nil)
	}()
	if err := req.Validate(); err != nil {
		return core.MessageResponse{}, err
	}
	if err := c.ready(); err != nil {
		return core.MessageResponse{}, err
	}
	return transport.Call[core.MessageResponse](ctx, c.rest, transport.Request{
		Method: http.MethodPost,
		Path:   c.paths.ChangePasswordPath,
		Body:   req,
	})
}

// RestoreSession rebuilds the signed-in state from stored credentials. An
// unexpired access token is confirmed by fetching the profile; an expired
// one is refreshed first when the refresh token is still good. Anything else
// clears the session. A nil profile with a nil error means nobody is signed
// in.
func (c *Client) RestoreSession(ctx context.Context) (user *core.UserProfile, err error) {
	startedAt := time.Now()
	outcome := "anonymous"
	defer func() {
		c.observer.Observe(ctx, startedAt, "auth_restore_session", err, map[string]any{"outcome": outcome})
	}()

	access, err := c.session.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := c.session.GetRefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	now := c.session.Now()

	switch {
	case access != "" && !core.IsTokenExpired(access, now):
		outcome = "restored"
	case access != "" && refresh != "" && !core.IsTokenExpired(refresh, now):
		outcome = "refreshed"
		if _, err := c.refreshSession(ctx); err != nil {
			_ = c.session.ClearCredentials(ctx)
			return nil, err
		}
	default:
		return nil, c.session.ClearCredentials(ctx)
	}

	user, err = c.CurrentUser(ctx)
	if err != nil {
		outcome = "cleared"
		_ = c.session.ClearCredentials(ctx)
		return nil, err
	}
	return user, nil
}

func (c *Client) refreshSession(ctx context.Context) (core.Credential, error) {
	if c.refresher != nil {
		return c.refresher.Refresh(ctx)
	}
	refreshToken, err := c.session.GetRefreshToken(ctx)
	if err != nil {
		return core.Credential{}, err
	}
	resp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return core.Credential{}, err
	}
	if err := c.session.ApplyAuthResponse(ctx, resp); err != nil {
		return core.Credential{}, err
	}
	return c.session.Credential(ctx)
}

func (c *Client) ready() error {
	if c == nil || c.rest == nil {
		return fmt.Errorf("auth: client requires a rest client")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ core.Refresher = (*Client)(nil)
