package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewAPIError_CategoryFromStatus(t *testing.T) {
	cases := []struct {
		status   int
		message  string
		category goerrors.Category
		textCode string
	}{
		{status: http.StatusBadRequest, message: "Error: Username is already taken!", category: goerrors.CategoryBadInput, textCode: ErrorBadInput},
		{status: http.StatusUnauthorized, category: goerrors.CategoryAuth, textCode: ErrorUnauthorized},
		{status: http.StatusForbidden, category: goerrors.CategoryAuthz, textCode: ErrorForbidden},
		{status: http.StatusNotFound, category: goerrors.CategoryNotFound, textCode: ErrorNotFound},
		{status: http.StatusConflict, category: goerrors.CategoryConflict, textCode: ErrorConflict},
		{status: http.StatusTooManyRequests, category: goerrors.CategoryRateLimit, textCode: ErrorRateLimited},
		{status: http.StatusInternalServerError, category: goerrors.CategoryExternal, textCode: ErrorExternalFailure},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := NewAPIError(tc.status, tc.message)
			if err.Category != tc.category {
				t.Fatalf("expected category %q, got %q", tc.category, err.Category)
			}
			if err.TextCode != tc.textCode {
				t.Fatalf("expected text code %q, got %q", tc.textCode, err.TextCode)
			}
			if err.Code != tc.status {
				t.Fatalf("expected code %d, got %d", tc.status, err.Code)
			}
			if tc.message == "" && err.Message != http.StatusText(tc.status) {
				t.Fatalf("expected status text fallback, got %q", err.Message)
			}
		})
	}
}

func TestMapError_AssignsStableCodes(t *testing.T) {
	var rich *goerrors.Error

	mapped := MapError(stderrors.New("core: base_url is required"))
	if !goerrors.As(mapped, &rich) || rich.TextCode != ErrorBadInput || rich.Code != http.StatusBadRequest {
		t.Fatalf("expected bad input envelope, got %v", mapped)
	}

	mapped = MapError(fmt.Errorf("wrapped: %w", ErrNoRefreshToken))
	if !goerrors.As(mapped, &rich) || rich.TextCode != ErrorNoRefreshToken {
		t.Fatalf("expected no refresh token envelope, got %v", mapped)
	}

	original := NewAPIError(http.StatusNotFound, "Content not found")
	mapped = MapError(original)
	if !goerrors.As(mapped, &rich) || rich.TextCode != ErrorNotFound {
		t.Fatalf("expected envelope to be kept, got %v", mapped)
	}

	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}

func TestIsSessionExpired(t *testing.T) {
	if !IsSessionExpired(NewSessionExpiredError(stderrors.New("refresh rejected"))) {
		t.Fatalf("expected session expired error to be recognised")
	}
	if !IsSessionExpired(NewNoRefreshTokenError()) {
		t.Fatalf("expected no refresh token to end the session")
	}
	if IsSessionExpired(NewAPIError(http.StatusForbidden, "")) {
		t.Fatalf("did not expect forbidden to end the session")
	}
	if IsSessionExpired(nil) {
		t.Fatalf("did not expect nil to end the session")
	}
}

func TestObserver_RecordsCountersAndLogs(t *testing.T) {
	metrics := NewMemoryMetricsRecorder()
	logger := &recordingLogger{}
	observer := NewObserver(logger, metrics)

	observer.Observe(context.Background(), time.Now(), "Content List", nil, map[string]any{"resource": "content"})
	observer.Observe(context.Background(), time.Now(), "content-list", stderrors.New("boom"), nil)

	if got := metrics.Counter("puthelp.content_list.total"); got != 2 {
		t.Fatalf("expected normalized operation counter of 2, got %d", got)
	}
	if got := metrics.Samples("puthelp.content_list.duration_ms"); got != 2 {
		t.Fatalf("expected two duration samples, got %d", got)
	}
	messages := logger.Messages()
	if len(messages) != 2 || messages[0] != "content_list succeeded" || messages[1] != "content_list failed" {
		t.Fatalf("unexpected log lines %v", messages)
	}
}
