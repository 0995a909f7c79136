package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-puthelp/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// networkError marks a failure that never produced a response, which the
// refresh coordinator may retry.
func networkError(source error, message string, code int, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(code).
		WithTextCode(core.ErrorTransportFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryAuth:
		return core.ErrorUnauthorized
	case goerrors.CategoryAuthz:
		return core.ErrorForbidden
	case goerrors.CategoryNotFound:
		return core.ErrorNotFound
	case goerrors.CategoryRateLimit:
		return core.ErrorRateLimited
	case goerrors.CategoryExternal:
		return core.ErrorExternalFailure
	default:
		return core.ErrorInternal
	}
}
