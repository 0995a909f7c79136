package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
)

const headerAuthorization = "Authorization"

// RefreshJoiner hands out a place in the single in-flight refresh.
type RefreshJoiner interface {
	Generation() uint64
	BeginOrJoinSince(ctx context.Context, seen uint64, sentToken string) *core.RefreshTicket
}

// AuthTransport attaches the stored access token to every request and
// recovers from 401 responses by refreshing once and replaying the request.
// Requests to the refresh endpoint are passed through untouched on 401.
// The endpoint is RefreshURL when set, otherwise any URL whose path is
// exactly RefreshPath.
type AuthTransport struct {
	Base        http.RoundTripper
	Store       core.CredentialStore
	Refresh     RefreshJoiner
	RefreshPath string
	RefreshURL  string
	Observer    *core.Observer
}

type AuthTransportOption func(*AuthTransport)

func WithRefreshPath(path string) AuthTransportOption {
	return func(t *AuthTransport) {
		if path = strings.TrimSpace(path); path != "" {
			t.RefreshPath = path
		}
	}
}

// WithRefreshURL pins the refresh endpoint to an absolute URL, usually the
// configured base URL joined with the refresh path. Relative values are
// ignored.
func WithRefreshURL(raw string) AuthTransportOption {
	return func(t *AuthTransport) {
		raw = strings.TrimSpace(raw)
		if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
			t.RefreshURL = raw
		}
	}
}

func WithObserver(observer *core.Observer) AuthTransportOption {
	return func(t *AuthTransport) {
		if observer != nil {
			t.Observer = observer
		}
	}
}

func NewAuthTransport(base http.RoundTripper, store core.CredentialStore, refresh RefreshJoiner, opts ...AuthTransportOption) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &AuthTransport{
		Base:        base,
		Store:       store,
		Refresh:     refresh,
		RefreshPath: core.DefaultConfig().Auth.RefreshPath,
		Observer:    core.NewObserver(nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t == nil || t.Base == nil {
		closeRequestBody(req)
		return nil, transportError(
			"transport: auth transport requires a base round tripper",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	var seen uint64
	if t.Refresh != nil {
		seen = t.Refresh.Generation()
	}
	token := t.currentToken(ctx)
	resp, err := t.send(req, getBody, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.isRefreshRequest(req) {
		return resp, nil
	}
	discardBody(resp)

	// A refresh finished between sending and receiving; use its token.
	if current := t.currentToken(ctx); current != "" && current != token {
		return t.send(req, getBody, current)
	}

	if t.Refresh == nil {
		return nil, transportError(
			"transport: request unauthorized and no refresh coordinator is configured",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			map[string]any{"method": req.Method, "path": req.URL.Path},
		)
	}

	startedAt := time.Now()
	ticket := t.Refresh.BeginOrJoinSince(ctx, seen, token)
	cred, err := ticket.Wait(ctx)
	t.Observer.Debug(ctx, "request waited for session refresh", map[string]any{
		"method":      req.Method,
		"path":        req.URL.Path,
		"leader":      ticket.Leader(),
		"refreshed":   err == nil,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	return t.send(req, getBody, cred.AccessToken)
}

func (t *AuthTransport) send(req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, transportWrapError(err, goerrors.CategoryInternal, "transport: replay request body", http.StatusInternalServerError, nil)
		}
		clone.Body = body
		clone.GetBody = getBody
	}
	clone.Header.Del(headerAuthorization)
	if token != "" {
		clone.Header.Set(headerAuthorization, "Bearer "+token)
	}
	return t.Base.RoundTrip(clone)
}

// currentToken never fails: a broken store sends the request anonymously.
func (t *AuthTransport) currentToken(ctx context.Context) string {
	if t.Store == nil {
		return ""
	}
	token, err := t.Store.GetAccessToken(ctx)
	if err != nil {
		t.Observer.Warn(ctx, "access token lookup failed, sending request without credentials", map[string]any{
			"error": err.Error(),
		})
		return ""
	}
	return strings.TrimSpace(token)
}

func (t *AuthTransport) isRefreshRequest(req *http.Request) bool {
	if req.URL == nil {
		return false
	}
	if t.RefreshURL != "" {
		target, err := url.Parse(t.RefreshURL)
		if err != nil {
			return false
		}
		return strings.EqualFold(req.URL.Scheme, target.Scheme) &&
			strings.EqualFold(req.URL.Host, target.Host) &&
			cleanPath(req.URL.Path) == cleanPath(target.Path)
	}
	refreshPath := cleanPath(t.RefreshPath)
	return refreshPath != "" && cleanPath(req.URL.Path) == refreshPath
}

func cleanPath(path string) string {
	return strings.TrimRight(strings.TrimSpace(path), "/")
}

func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		closeRequestBody(req)
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	closeRequestBody(req)
	if err != nil {
		return nil, transportWrapError(err, goerrors.CategoryBadInput, "transport: read request body", http.StatusBadRequest, nil)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func closeRequestBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}

func discardBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// NewHTTPClient returns an http.Client whose transport runs the
// authentication pipeline.
func NewHTTPClient(cfg core.Config, base http.RoundTripper, store core.CredentialStore, refresh RefreshJoiner, observer *core.Observer) *http.Client {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = core.DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: NewAuthTransport(base, store, refresh,
			WithRefreshPath(cfg.Auth.RefreshPath),
			WithRefreshURL(cfg.Endpoint(cfg.Auth.RefreshPath)),
			WithObserver(observer),
		),
	}
}

var _ http.RoundTripper = (*AuthTransport)(nil)
