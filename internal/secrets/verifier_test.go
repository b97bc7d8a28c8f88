package secrets

import (
	"bytes"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSharedSecretVerifierExactMatch(t *testing.T) {
	verifier := SharedSecretVerifier{
		Store:      StaticStore{"webhook-secret": "secret1"},
		SecretName: "webhook-secret",
	}

	header := http.Header{}
	header.Set("Auth", "secret1")
	if !verifier.Verify(header) {
		t.Fatal("auth header with matching secret should be permitted")
	}

	header = http.Header{}
	header.Set("Authorization", "secret1")
	if !verifier.Verify(header) {
		t.Fatal("authorization header with matching secret should be permitted")
	}
}

func TestSharedSecretVerifierCaseSensitive(t *testing.T) {
	verifier := SharedSecretVerifier{
		Store:      StaticStore{"webhook-secret": "secret1"},
		SecretName: "webhook-secret",
	}
	header := http.Header{}
	header.Set("Auth", "Secret1")
	if verifier.Verify(header) {
		t.Fatal("comparison must be exact and case-sensitive")
	}
}

func TestSharedSecretVerifierPrefersAuthorizationHeader(t *testing.T) {
	verifier := SharedSecretVerifier{
		Store:      StaticStore{"webhook-secret": "secret1"},
		SecretName: "webhook-secret",
	}
	header := http.Header{}
	header.Set("Authorization", "wrong")
	header.Set("Auth", "secret1")
	if verifier.Verify(header) {
		t.Fatal("auth header must only apply when authorization is absent")
	}
}

func TestSharedSecretVerifierMissingHeaderDenied(t *testing.T) {
	verifier := SharedSecretVerifier{
		Store:      StaticStore{"webhook-secret": "secret1"},
		SecretName: "webhook-secret",
	}
	if verifier.Verify(http.Header{}) {
		t.Fatal("request without credential must be denied")
	}
}

type failingStore struct{ err error }

func (s failingStore) Get(string) (string, error) { return "", s.err }

func TestSharedSecretVerifierFailsClosedAndLogs(t *testing.T) {
	var logs bytes.Buffer
	verifier := SharedSecretVerifier{
		Store:      failingStore{err: errors.New("vault offline")},
		SecretName: "webhook-secret",
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	}
	header := http.Header{}
	header.Set("Authorization", "secret1")
	if verifier.Verify(header) {
		t.Fatal("store failure must deny")
	}
	if !strings.Contains(logs.String(), "vault offline") {
		t.Fatalf("expected lookup failure to be logged, got %q", logs.String())
	}
}

func TestSharedSecretVerifierHashedSecret(t *testing.T) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	hashed, err := HashSecret("secret1", salt)
	if err != nil {
		t.Fatalf("HashSecret error: %v", err)
	}
	verifier := SharedSecretVerifier{
		Store:      StaticStore{"webhook-secret": hashed},
		SecretName: "webhook-secret",
	}

	header := http.Header{}
	header.Set("Authorization", "secret1")
	if !verifier.Verify(header) {
		t.Fatal("hashed secret should verify the plaintext credential")
	}

	header.Set("Authorization", "secret2")
	if verifier.Verify(header) {
		t.Fatal("wrong credential must be denied against hashed secret")
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv("SITEBRIDGE_SECRET_VELO_SECRET", " secret1 ")
	store := EnvStore{Prefix: "SITEBRIDGE_SECRET_"}
	value, err := store.Get("velo-secret")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if value != "secret1" {
		t.Fatalf("value = %q, want trimmed secret1", value)
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("missing secret error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "webhook-secret"), []byte("secret1\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	store := &FileStore{Dir: dir}
	value, err := store.Get("webhook-secret")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if value != "secret1" {
		t.Fatalf("value = %q, want secret1", value)
	}
	if _, err := store.Get("absent"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("absent secret error = %v, want ErrSecretNotFound", err)
	}
	if _, err := store.Get("../escape"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("path traversal error = %v, want ErrSecretNotFound", err)
	}
}
