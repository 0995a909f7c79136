package security

import (
	"context"
	"fmt"

	"github.com/goliatone/go-puthelp/core"
)

type EncryptedStorageOption func(*EncryptedStorage)

// WithPlaintextReads returns stored values that were never sealed as they
// are. Use it while migrating a store that predates encryption.
func WithPlaintextReads() EncryptedStorageOption {
	return func(s *EncryptedStorage) {
		s.allowPlaintext = true
	}
}

// EncryptedStorage seals every value before it reaches the wrapped storage.
type EncryptedStorage struct {
	base           core.KeyValueStorage
	secrets        core.SecretProvider
	allowPlaintext bool
}

func NewEncryptedStorage(
	base core.KeyValueStorage,
	secrets core.SecretProvider,
	opts ...EncryptedStorageOption,
) (*EncryptedStorage, error) {
	if base == nil {
		return nil, fmt.Errorf("security: base storage is required")
	}
	if secrets == nil {
		return nil, fmt.Errorf("security: secret provider is required")
	}
	storage := &EncryptedStorage{base: base, secrets: secrets}
	for _, opt := range opts {
		if opt != nil {
			opt(storage)
		}
	}
	return storage, nil
}

func (s *EncryptedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	stored, found, err := s.base.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	if !IsEnvelope(stored) {
		if s.allowPlaintext {
			return stored, true, nil
		}
		return "", false, fmt.Errorf("security: value for %s is not sealed", key)
	}
	plaintext, err := s.secrets.Decrypt(ctx, []byte(stored))
	if err != nil {
		return "", false, fmt.Errorf("security: open %s: %w", key, err)
	}
	return string(plaintext), true, nil
}

func (s *EncryptedStorage) Set(ctx context.Context, key string, value string) error {
	sealed, err := s.secrets.Encrypt(ctx, []byte(value))
	if err != nil {
		return fmt.Errorf("security: seal %s: %w", key, err)
	}
	return s.base.Set(ctx, key, string(sealed))
}

func (s *EncryptedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.base.Delete(ctx, keys...)
}

var _ core.KeyValueStorage = (*EncryptedStorage)(nil)
