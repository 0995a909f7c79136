package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSigningKey = "test-signing-key"

func mintToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type scriptedRefresher struct {
	mu      sync.Mutex
	calls   atomic.Int64
	gate    chan struct{}
	results []scriptedRefreshResult
	tokens  []string
}

type scriptedRefreshResult struct {
	resp AuthResponse
	err  error
}

func (r *scriptedRefresher) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	call := int(r.calls.Add(1))
	r.mu.Lock()
	r.tokens = append(r.tokens, refreshToken)
	r.mu.Unlock()
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return AuthResponse{}, ctx.Err()
		}
	}
	if len(r.results) == 0 {
		return AuthResponse{}, errors.New("no scripted result")
	}
	index := call - 1
	if index >= len(r.results) {
		index = len(r.results) - 1
	}
	return r.results[index].resp, r.results[index].err
}

type failingStorage struct {
	err error
}

func (s failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, s.err
}

func (s failingStorage) Set(context.Context, string, string) error {
	return s.err
}

func (s failingStorage) Delete(context.Context, ...string) error {
	return s.err
}

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(message string) {
	l.mu.Lock()
	l.messages = append(l.messages, message)
	l.mu.Unlock()
}

func (l *recordingLogger) Trace(message string, _ ...any) { l.record(message) }
func (l *recordingLogger) Debug(message string, _ ...any) { l.record(message) }
func (l *recordingLogger) Info(message string, _ ...any)  { l.record(message) }
func (l *recordingLogger) Warn(message string, _ ...any)  { l.record(message) }
func (l *recordingLogger) Error(message string, _ ...any) { l.record(message) }
func (l *recordingLogger) Fatal(message string, _ ...any) { l.record(message) }

func (l *recordingLogger) WithContext(context.Context) Logger { return l }

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
