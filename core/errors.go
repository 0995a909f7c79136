package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput         = "PUTHELP_BAD_INPUT"
	ErrorUnauthorized     = "PUTHELP_UNAUTHORIZED"
	ErrorForbidden        = "PUTHELP_FORBIDDEN"
	ErrorNotFound         = "PUTHELP_NOT_FOUND"
	ErrorConflict         = "PUTHELP_CONFLICT"
	ErrorRateLimited      = "PUTHELP_RATE_LIMITED"
	ErrorSessionExpired   = "PUTHELP_SESSION_EXPIRED"
	ErrorNoRefreshToken   = "PUTHELP_NO_REFRESH_TOKEN"
	ErrorRefreshFailed    = "PUTHELP_REFRESH_FAILED"
	ErrorExternalFailure  = "PUTHELP_EXTERNAL_FAILURE"
	ErrorTransportFailure = "PUTHELP_TRANSPORT_FAILURE"
	ErrorInternal         = "PUTHELP_INTERNAL_ERROR"
)

var ErrNoRefreshToken = errors.New("no refresh token available")

// NewSessionExpiredError is returned to requests that were parked behind a
// refresh that failed.
func NewSessionExpiredError(cause error) *goerrors.Error {
	message := "session expired"
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryAuth, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryAuth)
	}
	return err.
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorSessionExpired)
}

func NewNoRefreshTokenError() *goerrors.Error {
	return goerrors.Wrap(ErrNoRefreshToken, goerrors.CategoryAuth, ErrNoRefreshToken.Error()).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorNoRefreshToken)
}

// IsSessionExpired reports whether err ends an authenticated session.
func IsSessionExpired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoRefreshToken) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case ErrorSessionExpired, ErrorNoRefreshToken:
			return true
		}
	}
	return false
}

// NewAPIError maps a non-2xx backend response onto an error envelope.
func NewAPIError(status int, message string) *goerrors.Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = strings.TrimSpace(http.StatusText(status))
	}
	if message == "" {
		message = "request failed"
	}
	category := categoryForStatus(status)
	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(defaultTextCode(category))
}

func categoryForStatus(status int) goerrors.Category {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	case http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case http.StatusForbidden:
		return goerrors.CategoryAuthz
	case http.StatusNotFound:
		return goerrors.CategoryNotFound
	case http.StatusConflict:
		return goerrors.CategoryConflict
	case http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	default:
		return goerrors.CategoryExternal
	}
}

func errorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}
	if errors.Is(err, ErrNoRefreshToken) {
		return NewNoRefreshTokenError()
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "session expired"):
		return newError(err.Error(), goerrors.CategoryAuth, ErrorSessionExpired)
	case strings.Contains(msg, "not found"):
		return newError(err.Error(), goerrors.CategoryNotFound, ErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must"):
		return newError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

// MapError converts any error into the library error envelope.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	mapped := errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func newError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth:
		return ErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ErrorForbidden
	case goerrors.CategoryConflict:
		return ErrorConflict
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
