package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// KeyValueStorage is the durable local state behind the credential store.
// Delete removes every listed key as a single unit.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type CredentialStore interface {
	GetAccessToken(ctx context.Context) (string, error)
	GetRefreshToken(ctx context.Context) (string, error)
	// SetCredentials stores access and, when non-empty, refresh.
	SetCredentials(ctx context.Context, access string, refresh string) error
	ClearCredentials(ctx context.Context) error
}

// ProfileStore is implemented by credential stores that also cache the
// signed-in user.
type ProfileStore interface {
	SetCurrentUser(user *UserProfile)
	CurrentUser() *UserProfile
}

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (AuthResponse, error)
}

type RefresherFunc func(ctx context.Context, refreshToken string) (AuthResponse, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	return f(ctx, refreshToken)
}

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type SessionRefreshJob struct {
	ID             string
	Reason         string
	IdempotencyKey string
	ScheduledAt    time.Time
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, job SessionRefreshJob) error
}

type JobDelivery interface {
	Job() SessionRefreshJob
	Attempt() int
	Ack(ctx context.Context) error
	Nack(ctx context.Context, delay time.Duration, requeue bool, reason string) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
