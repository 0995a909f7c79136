package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-puthelp/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDSessionRefresh  = core.SessionRefreshJobType
	ScriptSessionRefresh = "puthelp/session/refresh"

	// DedupPolicyDrop discards a job whose idempotency key is already queued.
	DedupPolicyDrop = "drop"

	paramJobID       = "job_id"
	paramReason      = "reason"
	paramScheduledAt = "scheduled_at"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
		return out
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a session refresh job to go-job.
func ToExecutionMessage(refresh core.SessionRefreshJob) *job.ExecutionMessage {
	params := map[string]any{
		paramJobID:  strings.TrimSpace(refresh.ID),
		paramReason: strings.TrimSpace(refresh.Reason),
	}
	if !refresh.ScheduledAt.IsZero() {
		params[paramScheduledAt] = refresh.ScheduledAt.UTC().Format(time.RFC3339Nano)
	}
	return &job.ExecutionMessage{
		JobID:          JobIDSessionRefresh,
		ScriptPath:     ScriptSessionRefresh,
		Parameters:     params,
		IdempotencyKey: strings.TrimSpace(refresh.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(DedupPolicyDrop),
	}
}

// FromExecutionMessage maps a go-job message back to a session refresh job.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.SessionRefreshJob, error) {
	if msg == nil {
		return core.SessionRefreshJob{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSessionRefresh {
		return core.SessionRefreshJob{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	out := core.SessionRefreshJob{
		ID:             stringParam(msg.Parameters, paramJobID),
		Reason:         stringParam(msg.Parameters, paramReason),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
	}
	if raw := stringParam(msg.Parameters, paramScheduledAt); raw != "" {
		scheduledAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return core.SessionRefreshJob{}, fmt.Errorf("gojob: parse scheduled_at: %w", err)
		}
		out.ScheduledAt = scheduledAt
	}
	return out, nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, refresh core.SessionRefreshJob) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(refresh))
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	job      core.SessionRefreshJob
	attempt  int
	policy   RetryPolicy
	settled  func(key string)
	key      string
}

func (d *DeliveryAdapter) Job() core.SessionRefreshJob {
	if d == nil {
		return core.SessionRefreshJob{}
	}
	return d.job
}

// Attempt is 1 for the first delivery of a job and counts redeliveries seen
// by the same dequeuer.
func (d *DeliveryAdapter) Attempt() int {
	if d == nil {
		return 0
	}
	return d.attempt
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	if err := d.delivery.Ack(ctx); err != nil {
		return err
	}
	d.settle()
	return nil
}

// Nack applies the retry policy before handing the delivery back to the queue.
func (d *DeliveryAdapter) Nack(ctx context.Context, delay time.Duration, requeue bool, reason string) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	opts := d.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   delay,
		Requeue: requeue,
		Reason:  reason,
	}, d.attempt)
	if err := d.delivery.Nack(ctx, opts); err != nil {
		return err
	}
	if !opts.Requeue {
		d.settle()
	}
	return nil
}

func (d *DeliveryAdapter) settle() {
	if d.settled != nil {
		d.settled(d.key)
	}
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy

	mu       sync.Mutex
	attempts map[string]int
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy, attempts: map[string]int{}}
}

// Dequeue returns nil without error when the queue has nothing to deliver.
// Messages that are not session refresh jobs are dead-lettered.
func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, nil
	}
	refresh, err := FromExecutionMessage(delivery.Message())
	if err != nil {
		nackErr := delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()})
		if nackErr != nil {
			return nil, fmt.Errorf("%w (dead letter failed: %v)", err, nackErr)
		}
		return nil, err
	}

	key := attemptKey(refresh)
	return &DeliveryAdapter{
		delivery: delivery,
		job:      refresh,
		attempt:  a.nextAttempt(key),
		policy:   a.policy,
		settled:  a.forget,
		key:      key,
	}, nil
}

func (a *DequeuerAdapter) nextAttempt(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts[key]++
	return a.attempts[key]
}

func (a *DequeuerAdapter) forget(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.attempts, key)
}

func attemptKey(refresh core.SessionRefreshJob) string {
	if key := strings.TrimSpace(refresh.IdempotencyKey); key != "" {
		return key
	}
	return refresh.ID
}

// WorkerHookAdapter reports go-job worker events through the client observer.
type WorkerHookAdapter struct {
	observer *core.Observer
}

func NewWorkerHookAdapter(observer *core.Observer) *WorkerHookAdapter {
	if observer == nil {
		observer = core.NewObserver(nil, nil)
	}
	return &WorkerHookAdapter{observer: observer}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	a.observer.Debug(ctx, "session refresh job started", eventFields(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	a.observer.Observe(ctx, event.StartedAt, "session_refresh_worker", nil, eventFields(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	err := event.Err
	if err == nil {
		err = fmt.Errorf("gojob: worker reported failure")
	}
	a.observer.Observe(ctx, event.StartedAt, "session_refresh_worker", err, eventFields(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	fields := eventFields(event)
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	a.observer.Warn(ctx, "session refresh job retry scheduled", fields)
}

func eventFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt":     event.Attempt,
		"delay_ms":    event.Delay.Milliseconds(),
		"duration_ms": event.Duration.Milliseconds(),
	}
	if message != nil {
		fields["job_type"] = message.JobID
		fields["idempotency_key"] = message.IdempotencyKey
		if id := stringParam(message.Parameters, paramJobID); id != "" {
			fields["job_id"] = id
		}
	}
	return fields
}

func stringParam(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
