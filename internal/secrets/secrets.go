// Package secrets provides lookup of named shared secrets and verification of
// caller credentials against them.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrSecretNotFound is returned when the named secret is absent from the
// backing store.
var ErrSecretNotFound = errors.New("secret not found")

// Store retrieves shared secrets by name.
type Store interface {
	Get(name string) (string, error)
}

// EnvStore resolves secrets from environment variables. The secret name is
// upper-cased, non-alphanumeric runes become underscores, and the configured
// prefix is prepended: secret "velo-secret" with prefix "SITEBRIDGE_SECRET_"
// reads SITEBRIDGE_SECRET_VELO_SECRET.
type EnvStore struct {
	Prefix string
}

func (s EnvStore) Get(name string) (string, error) {
	key := s.Prefix + sanitizeEnvName(name)
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return strings.TrimSpace(value), nil
}

func sanitizeEnvName(name string) string {
	upper := strings.ToUpper(name)
	var builder strings.Builder
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

// FileStore reads each secret from a file named after the secret inside Dir.
// Values are cached after the first successful read.
type FileStore struct {
	Dir string

	mu    sync.RWMutex
	cache map[string]string
}

func (s *FileStore) Get(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.ContainsAny(trimmed, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrSecretNotFound, name)
	}

	s.mu.RLock()
	cached, ok := s.cache[trimmed]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	payload, err := os.ReadFile(s.Dir + string(os.PathSeparator) + trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, trimmed)
		}
		return "", fmt.Errorf("read secret %s: %w", trimmed, err)
	}
	value := strings.TrimSpace(string(payload))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, trimmed)
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string]string)
	}
	s.cache[trimmed] = value
	s.mu.Unlock()

	return value, nil
}

// StaticStore serves secrets from a fixed in-memory map. Used by tests and by
// the -shared-secret flag path.
type StaticStore map[string]string

func (s StaticStore) Get(name string) (string, error) {
	value, ok := s[name]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}
