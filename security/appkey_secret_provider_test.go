package security

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestAppKeySecretProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("puthelp-v1"), WithVersion(3))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	plaintext := []byte("token-value-123")
	encrypted, err := provider.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(encrypted, plaintext) {
		t.Fatalf("expected encrypted payload to differ from plaintext")
	}
	if !bytes.HasPrefix(encrypted, []byte(envelopePrefix)) {
		t.Fatalf("expected envelope prefix")
	}

	metadata, err := ParseEnvelopeMetadata(encrypted)
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if metadata.KeyID != "puthelp-v1" || metadata.Version != 3 || metadata.Algorithm != envelopeAlgorithm {
		t.Fatalf("unexpected metadata: %+v", metadata)
	}

	decrypted, err := provider.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected roundtrip plaintext; got %q", string(decrypted))
	}
}

func TestAppKeySecretProvider_RejectsMetadataMismatch(t *testing.T) {
	issuer, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("puthelp-v1"), WithVersion(1))
	if err != nil {
		t.Fatalf("new issuer provider: %v", err)
	}
	receiver, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("puthelp-v2"), WithVersion(2))
	if err != nil {
		t.Fatalf("new receiver provider: %v", err)
	}

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected metadata mismatch error")
	}
}

func TestAppKeySecretProvider_OpensWithRetiredKey(t *testing.T) {
	ctx := context.Background()
	old, err := NewAppKeySecretProviderFromString("old-key-material", WithKeyID("app-key"), WithVersion(1))
	if err != nil {
		t.Fatalf("new old provider: %v", err)
	}
	sealed, err := old.Encrypt(ctx, []byte("refresh-token"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	rotated, err := NewAppKeySecretProviderFromString(
		"new-key-material",
		WithVersion(2),
		WithRetiredKey("app-key", 1, []byte("old-key-material")),
	)
	if err != nil {
		t.Fatalf("new rotated provider: %v", err)
	}
	opened, err := rotated.Decrypt(ctx, sealed)
	if err != nil {
		t.Fatalf("decrypt with retired key: %v", err)
	}
	if string(opened) != "refresh-token" {
		t.Fatalf("unexpected plaintext %q", opened)
	}

	resealed, err := rotated.Encrypt(ctx, opened)
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	if metadata, _ := ParseEnvelopeMetadata(resealed); metadata.Version != 2 {
		t.Fatalf("expected new values sealed with the active version, got %+v", metadata)
	}
	if _, err := old.Decrypt(ctx, resealed); err == nil {
		t.Fatalf("expected old provider to reject the rotated value")
	}
}

func TestAppKeySecretProvider_RotationWindowGatesSealing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	provider, err := NewAppKeySecretProviderFromString(
		"window-key",
		WithRotationWindow(KeyRotationWindow{NotAfter: now.Add(-time.Hour)}),
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.Encrypt(ctx, []byte("x")); err == nil || !strings.Contains(err.Error(), "rotation window") {
		t.Fatalf("expected rotation window error, got %v", err)
	}

	window := KeyRotationWindow{NotBefore: now.Add(-time.Hour), NotAfter: now.Add(time.Hour)}
	if !window.Allows(now) || window.Allows(now.Add(2*time.Hour)) || window.Allows(now.Add(-2*time.Hour)) {
		t.Fatalf("unexpected window evaluation")
	}
}

func TestAppKeySecretProvider_RejectsMalformedInput(t *testing.T) {
	if _, err := NewAppKeySecretProviderFromString("  "); err == nil {
		t.Fatalf("expected key material error")
	}
	if _, err := NewAppKeySecretProviderFromString("k", WithRetiredKey("", 1, []byte("x"))); err == nil {
		t.Fatalf("expected retired key validation error")
	}
	if _, err := NewAppKeySecretProviderFromString("k", WithRetiredKey("app-key", 1, []byte("x"))); err == nil {
		t.Fatalf("expected shadowed active key error")
	}

	provider, err := NewAppKeySecretProviderFromString("k")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()
	if _, err := provider.Encrypt(ctx, nil); err == nil {
		t.Fatalf("expected empty plaintext error")
	}
	for _, input := range []string{"", "plain-token", envelopePrefix + "{", envelopePrefix + `{"alg":"rot13","ciphertext":"eA=="}`} {
		if _, err := provider.Decrypt(ctx, []byte(input)); err == nil {
			t.Fatalf("expected decrypt error for %q", input)
		}
	}
}
