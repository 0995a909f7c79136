package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RefreshCoordinator runs at most one credential refresh at a time. Callers
// that hit an authorization failure while a refresh is running join it and
// are released in arrival order once it settles.
type RefreshCoordinator struct {
	store       CredentialStore
	refresher   Refresher
	scheduler   RefreshBackoffScheduler
	timeout     time.Duration
	maxAttempts int
	observer    *Observer

	mu         sync.Mutex
	inflight   *refreshCall
	settled    *refreshCall
	generation uint64
	started    atomic.Int64
}

type RefreshCoordinatorOption func(*RefreshCoordinator)

func WithRefreshTimeout(timeout time.Duration) RefreshCoordinatorOption {
	return func(c *RefreshCoordinator) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

func WithRefreshMaxAttempts(attempts int) RefreshCoordinatorOption {
	return func(c *RefreshCoordinator) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

func WithRefreshBackoff(scheduler RefreshBackoffScheduler) RefreshCoordinatorOption {
	return func(c *RefreshCoordinator) {
		if scheduler != nil {
			c.scheduler = scheduler
		}
	}
}

func WithRefreshObserver(observer *Observer) RefreshCoordinatorOption {
	return func(c *RefreshCoordinator) {
		if observer != nil {
			c.observer = observer
		}
	}
}

func NewRefreshCoordinator(store CredentialStore, refresher Refresher, opts ...RefreshCoordinatorOption) *RefreshCoordinator {
	coordinator := &RefreshCoordinator{
		store:       store,
		refresher:   refresher,
		scheduler:   ExponentialBackoffScheduler{},
		maxAttempts: DefaultRefreshMaxAttempts,
		observer:    NewObserver(nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(coordinator)
		}
	}
	return coordinator
}

type refreshCall struct {
	id        string
	startedAt time.Time
	waiters   []chan struct{}
	cred      Credential
	err       error
}

// RefreshTicket is a caller's place in a refresh.
type RefreshTicket struct {
	call   *refreshCall
	leader bool
	ready  chan struct{}
}

// Leader reports whether this ticket started the refresh.
func (t *RefreshTicket) Leader() bool {
	return t != nil && t.leader
}

// Wait blocks until the refresh settles. The leader receives the refresh
// failure unchanged; joiners receive a session expired error wrapping it.
func (t *RefreshTicket) Wait(ctx context.Context) (Credential, error) {
	if t == nil || t.call == nil {
		return Credential{}, fmt.Errorf("core: refresh ticket is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-t.ready:
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	}
	if t.call.err != nil {
		if t.leader {
			return Credential{}, t.call.err
		}
		return Credential{}, NewSessionExpiredError(t.call.err)
	}
	return t.call.cred, nil
}

// BeginOrJoin starts a refresh when none is running, otherwise joins the
// running one. The refresh is detached from ctx cancellation.
func (c *RefreshCoordinator) BeginOrJoin(ctx context.Context) *RefreshTicket {
	return c.begin(ctx, nil)
}

// Generation counts settled refreshes. Read it before loading the token a
// request carries, then hand it to BeginOrJoinSince if the request is
// rejected.
func (c *RefreshCoordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// BeginOrJoinSince is BeginOrJoin for a caller that sent sentToken, loaded
// at generation seen. If a refresh settled since then and replaced that
// token, or failed, the caller gets that outcome and no refresh starts.
func (c *RefreshCoordinator) BeginOrJoinSince(ctx context.Context, seen uint64, sentToken string) *RefreshTicket {
	return c.begin(ctx, func(settled *refreshCall) bool {
		if c.generation == seen {
			return false
		}
		return settled.err != nil || settled.cred.AccessToken != sentToken
	})
}

func (c *RefreshCoordinator) begin(ctx context.Context, superseded func(settled *refreshCall) bool) *RefreshTicket {
	if ctx == nil {
		ctx = context.Background()
	}
	ready := make(chan struct{})

	c.mu.Lock()
	if c.inflight == nil && c.settled != nil && superseded != nil && superseded(c.settled) {
		settled := c.settled
		c.mu.Unlock()
		close(ready)
		return &RefreshTicket{call: settled, ready: ready}
	}
	call := c.inflight
	leader := call == nil
	if leader {
		call = &refreshCall{id: uuid.NewString(), startedAt: time.Now()}
		c.inflight = call
		c.started.Add(1)
	}
	call.waiters = append(call.waiters, ready)
	c.mu.Unlock()

	if leader {
		go c.run(context.WithoutCancel(ctx), call)
	}
	return &RefreshTicket{call: call, leader: leader, ready: ready}
}

// SetRefresher replaces the refresher used by refreshes started afterwards.
func (c *RefreshCoordinator) SetRefresher(refresher Refresher) {
	c.mu.Lock()
	c.refresher = refresher
	c.mu.Unlock()
}

func (c *RefreshCoordinator) currentRefresher() Refresher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresher
}

// Refresh starts or joins a refresh and waits for it.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (Credential, error) {
	return c.BeginOrJoin(ctx).Wait(ctx)
}

func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Waiters returns the number of callers parked on the running refresh.
func (c *RefreshCoordinator) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return 0
	}
	return len(c.inflight.waiters)
}

// Started returns how many refreshes have been started.
func (c *RefreshCoordinator) Started() int64 {
	return c.started.Load()
}

func (c *RefreshCoordinator) run(ctx context.Context, call *refreshCall) {
	cred, attempts, err := c.execute(ctx)

	c.mu.Lock()
	call.cred = cred
	call.err = err
	if c.inflight == call {
		c.inflight = nil
	}
	c.settled = call
	c.generation++
	waiters := call.waiters
	call.waiters = nil
	c.mu.Unlock()

	c.observe(ctx, call, attempts, len(waiters), err)
	for _, ready := range waiters {
		close(ready)
	}
}

func (c *RefreshCoordinator) execute(ctx context.Context) (Credential, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.store == nil {
		return Credential{}, 0, fmt.Errorf("core: credential store is not configured")
	}

	refreshToken, err := c.store.GetRefreshToken(ctx)
	if err != nil {
		c.clear(ctx)
		return Credential{}, 0, err
	}
	if strings.TrimSpace(refreshToken) == "" {
		c.clear(ctx)
		return Credential{}, 0, NewNoRefreshTokenError()
	}
	refresher := c.currentRefresher()
	if refresher == nil {
		c.clear(ctx)
		return Credential{}, 0, fmt.Errorf("core: refresher is not configured")
	}

	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultRefreshMaxAttempts
	}

	var lastErr error
	attempt := 0
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		resp, refreshErr := refresher.Refresh(ctx, refreshToken)
		if refreshErr == nil {
			cred, storeErr := c.apply(ctx, resp, refreshToken)
			if storeErr != nil {
				lastErr = storeErr
				break
			}
			return cred, attempt, nil
		}
		lastErr = refreshErr
		if attempt == maxAttempts || !isRetryableRefreshError(refreshErr) {
			break
		}
		delay := time.Duration(0)
		if c.scheduler != nil {
			delay = c.scheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			lastErr = waitErr
			break
		}
	}
	if attempt > maxAttempts {
		attempt = maxAttempts
	}

	c.clear(ctx)
	return Credential{}, attempt, lastErr
}

func (c *RefreshCoordinator) apply(ctx context.Context, resp AuthResponse, previousRefresh string) (Credential, error) {
	access := strings.TrimSpace(resp.AccessToken)
	if access == "" {
		return Credential{}, fmt.Errorf("core: refresh response has no access token")
	}
	if err := c.store.SetCredentials(ctx, access, resp.RefreshToken); err != nil {
		return Credential{}, err
	}
	if profiles, ok := c.store.(ProfileStore); ok && strings.TrimSpace(resp.Username) != "" {
		profiles.SetCurrentUser(resp.Profile())
	}

	cred := Credential{AccessToken: access, RefreshToken: strings.TrimSpace(resp.RefreshToken)}
	if cred.RefreshToken == "" {
		cred.RefreshToken = previousRefresh
	}
	if claims, err := DecodeTokenClaims(access); err == nil {
		cred.ExpiresAt = claims.ExpiresAt
	}
	return cred, nil
}

func (c *RefreshCoordinator) clear(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.ClearCredentials(ctx); err != nil {
		c.observer.Warn(ctx, "session credentials clear failed", map[string]any{"error": err.Error()})
	}
}

func (c *RefreshCoordinator) observe(ctx context.Context, call *refreshCall, attempts int, waiters int, err error) {
	c.observer.Observe(ctx, call.startedAt, "session_refresh", err, map[string]any{
		"refresh_id": call.id,
		"attempts":   attempts,
		"waiters":    waiters,
	})
}

// isRetryableRefreshError limits retries to failures that never reached the
// backend.
func isRetryableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == ErrorTransportFailure
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
