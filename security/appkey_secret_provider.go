package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-puthelp/core"
)

type Option func(*AppKeySecretProvider)

// AppKeySecretProvider seals values with AES-GCM under an application key.
// Retired keys registered with WithRetiredKey can still open values.
type AppKeySecretProvider struct {
	key     []byte
	keyID   string
	version int
	window  KeyRotationWindow
	now     func() time.Time
	retired map[retiredKeyRef][]byte
	err     error
}

type retiredKeyRef struct {
	keyID   string
	version int
}

func WithKeyID(id string) Option {
	return func(provider *AppKeySecretProvider) {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			provider.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(provider *AppKeySecretProvider) {
		if version > 0 {
			provider.version = version
		}
	}
}

func WithRotationWindow(window KeyRotationWindow) Option {
	return func(provider *AppKeySecretProvider) {
		provider.window = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(provider *AppKeySecretProvider) {
		if now != nil {
			provider.now = now
		}
	}
}

func WithRetiredKey(keyID string, version int, keyMaterial []byte) Option {
	return func(provider *AppKeySecretProvider) {
		key := bytes.TrimSpace(keyMaterial)
		keyID = strings.TrimSpace(keyID)
		if len(key) == 0 || keyID == "" || version <= 0 {
			provider.err = fmt.Errorf("security: retired key requires key id, version and material")
			return
		}
		if provider.retired == nil {
			provider.retired = map[retiredKeyRef][]byte{}
		}
		provider.retired[retiredKeyRef{keyID: keyID, version: version}] = normalizeKey(key)
	}
}

func NewAppKeySecretProvider(keyMaterial []byte, opts ...Option) (*AppKeySecretProvider, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	provider := &AppKeySecretProvider{
		key:     normalizeKey(key),
		keyID:   "app-key",
		version: 1,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}
	if provider.err != nil {
		return nil, provider.err
	}
	if _, clash := provider.retired[retiredKeyRef{keyID: provider.keyID, version: provider.version}]; clash {
		return nil, fmt.Errorf("security: retired key %s v%d shadows the active key", provider.keyID, provider.version)
	}
	return provider, nil
}

func NewAppKeySecretProviderFromString(key string, opts ...Option) (*AppKeySecretProvider, error) {
	return NewAppKeySecretProvider([]byte(key), opts...)
}

func (p *AppKeySecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	if !p.window.Allows(p.now()) {
		return nil, fmt.Errorf("security: key %s v%d is outside its rotation window", p.keyID, p.version)
	}
	gcm, err := newGCM(p.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return encodeEnvelope(envelope{
		KeyID:      p.keyID,
		Version:    p.version,
		Algorithm:  envelopeAlgorithm,
		Nonce:      encodePayload(nonce),
		Ciphertext: encodePayload(sealed),
	})
}

func (p *AppKeySecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	parsed, err := decodeEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}
	key, err := p.keyFor(parsed)
	if err != nil {
		return nil, err
	}

	nonce, err := decodePayload("nonce", parsed.Nonce)
	if err != nil {
		return nil, err
	}
	encryptedPayload, err := decodePayload("ciphertext payload", parsed.Ciphertext)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("security: invalid nonce size %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, encryptedPayload, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

func (p *AppKeySecretProvider) keyFor(parsed envelope) ([]byte, error) {
	if parsed.KeyID == "" || (parsed.KeyID == p.keyID && parsed.Version == p.version) {
		return p.key, nil
	}
	if key, ok := p.retired[retiredKeyRef{keyID: parsed.KeyID, version: parsed.Version}]; ok {
		return key, nil
	}
	return nil, fmt.Errorf(
		"security: no key for %s v%d (active %s v%d)",
		parsed.KeyID, parsed.Version, p.keyID, p.version,
	)
}

func (p *AppKeySecretProvider) KeyID() string {
	if p == nil {
		return ""
	}
	return p.keyID
}

func (p *AppKeySecretProvider) Version() int {
	if p == nil {
		return 0
	}
	return p.version
}

func (p *AppKeySecretProvider) Metadata() (string, int) {
	return p.KeyID(), p.Version()
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

// normalizeKey keeps raw AES key sizes and hashes anything else to 32 bytes.
func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	key := make([]byte, len(sum))
	copy(key, sum[:])
	return key
}

var _ core.SecretProvider = (*AppKeySecretProvider)(nil)
