package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const SessionRefreshJobType = "puthelp.session.refresh"

// TokenStateReader exposes the stored credential lifecycle.
type TokenStateReader interface {
	TokenState(ctx context.Context, expiringSoonWindow time.Duration) (TokenState, error)
	Now() time.Time
}

// RefreshScheduler enqueues a refresh job before the access token lapses.
type RefreshScheduler struct {
	session    TokenStateReader
	enqueuer   JobEnqueuer
	leadWindow time.Duration
	observer   *Observer
}

func NewRefreshScheduler(session TokenStateReader, enqueuer JobEnqueuer, leadWindow time.Duration, observer *Observer) *RefreshScheduler {
	if leadWindow <= 0 {
		leadWindow = DefaultRefreshLeadWindow
	}
	if observer == nil {
		observer = NewObserver(nil, nil)
	}
	return &RefreshScheduler{
		session:    session,
		enqueuer:   enqueuer,
		leadWindow: leadWindow,
		observer:   observer,
	}
}

// Check enqueues a job when the session needs a refresh and reports whether
// it did.
func (s *RefreshScheduler) Check(ctx context.Context) (enqueued bool, err error) {
	if s == nil || s.session == nil || s.enqueuer == nil {
		return false, fmt.Errorf("core: refresh scheduler is not configured")
	}
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		fields["enqueued"] = enqueued
		s.observer.Observe(ctx, startedAt, "session_refresh_check", err, fields)
	}()

	state, err := s.session.TokenState(ctx, s.leadWindow)
	if err != nil {
		return false, err
	}
	now := s.session.Now()
	if !ShouldRefresh(now, state, s.leadWindow) {
		return false, nil
	}

	job := SessionRefreshJob{
		ID:          uuid.NewString(),
		Reason:      refreshReason(state),
		ScheduledAt: now.UTC(),
	}
	job.IdempotencyKey = SessionRefreshJobType + ":" + idempotencySuffix(state)
	fields["job_id"] = job.ID
	fields["reason"] = job.Reason
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

func refreshReason(state TokenState) string {
	switch {
	case !state.HasAccessToken:
		return "missing_access_token"
	case state.IsExpired:
		return "expired"
	default:
		return "expiring_soon"
	}
}

func idempotencySuffix(state TokenState) string {
	if state.ExpiresAt == nil {
		return "none"
	}
	return strconv.FormatInt(state.ExpiresAt.Unix(), 10)
}

// RefreshJobRunner consumes refresh jobs and runs them through the
// coordinator, so a queued refresh and a 401-triggered one never overlap.
type RefreshJobRunner struct {
	dequeuer    JobDequeuer
	coordinator *RefreshCoordinator
	session     TokenStateReader
	leadWindow  time.Duration
	observer    *Observer
}

func NewRefreshJobRunner(dequeuer JobDequeuer, coordinator *RefreshCoordinator, session TokenStateReader, leadWindow time.Duration, observer *Observer) *RefreshJobRunner {
	if leadWindow <= 0 {
		leadWindow = DefaultRefreshLeadWindow
	}
	if observer == nil {
		observer = NewObserver(nil, nil)
	}
	return &RefreshJobRunner{
		dequeuer:    dequeuer,
		coordinator: coordinator,
		session:     session,
		leadWindow:  leadWindow,
		observer:    observer,
	}
}

// RunOnce processes at most one delivery. It returns false when the queue
// had nothing to deliver.
func (r *RefreshJobRunner) RunOnce(ctx context.Context) (bool, error) {
	if r == nil || r.dequeuer == nil || r.coordinator == nil {
		return false, fmt.Errorf("core: refresh job runner is not configured")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}

	startedAt := time.Now()
	job := delivery.Job()
	fields := map[string]any{"job_id": job.ID, "attempt": delivery.Attempt()}

	if r.session != nil {
		state, stateErr := r.session.TokenState(ctx, r.leadWindow)
		if stateErr == nil && !ShouldRefresh(r.session.Now(), state, r.leadWindow) {
			fields["skipped"] = true
			err := delivery.Ack(ctx)
			r.observer.Observe(ctx, startedAt, "session_refresh_job", err, fields)
			return true, err
		}
	}

	_, refreshErr := r.coordinator.Refresh(ctx)
	if refreshErr != nil {
		nackErr := delivery.Nack(ctx, 0, false, refreshErr.Error())
		r.observer.Observe(ctx, startedAt, "session_refresh_job", refreshErr, fields)
		if nackErr != nil {
			return true, nackErr
		}
		return true, refreshErr
	}
	err = delivery.Ack(ctx)
	r.observer.Observe(ctx, startedAt, "session_refresh_job", err, fields)
	return true, err
}
