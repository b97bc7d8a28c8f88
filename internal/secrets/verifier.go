package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Verifier decides whether a request carries a valid caller credential.
// Implementations must fail closed: any lookup error means deny.
type Verifier interface {
	Verify(header http.Header) bool
}

// SharedSecretVerifier compares the request's authorization header (falling
// back to the auth header) against a single named secret. The stored value may
// be the plaintext secret or a pbkdf2$sha256$... derived hash produced by
// HashSecret.
type SharedSecretVerifier struct {
	Store      Store
	SecretName string
	Logger     *slog.Logger
}

// Verify reports whether the presented credential matches the stored secret.
// Missing headers, missing secrets, and store failures all deny.
func (v SharedSecretVerifier) Verify(header http.Header) bool {
	presented := header.Get("Authorization")
	if presented == "" {
		presented = header.Get("Auth")
	}
	if presented == "" {
		return false
	}

	stored, err := v.Store.Get(v.SecretName)
	if err != nil {
		if v.Logger != nil {
			v.Logger.Error("secret lookup failed", "secret", v.SecretName, "error", err)
		}
		return false
	}

	if strings.HasPrefix(stored, hashedSecretPrefix) {
		if err := verifyHashedSecret(stored, presented); err != nil {
			return false
		}
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

const (
	hashedSecretPrefix     = "pbkdf2$"
	secretHashSaltLength   = 16
	secretHashKeyLength    = 32
	secretHashIterations   = 120000
	secretHashPartCount    = 5
	secretHashAlgorithmTag = "sha256"
)

// HashSecret derives a storable pbkdf2$sha256$iterations$salt$key encoding of
// the secret so configuration never has to hold the plaintext.
func HashSecret(secret string, salt []byte) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret is required")
	}
	if len(salt) < secretHashSaltLength {
		return "", fmt.Errorf("salt must be at least %d bytes", secretHashSaltLength)
	}
	derived := pbkdf2.Key([]byte(secret), salt, secretHashIterations, secretHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$%s$%d$%s$%s", secretHashAlgorithmTag, secretHashIterations, encodedSalt, encodedKey), nil
}

func verifyHashedSecret(encoded, candidate string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != secretHashPartCount {
		return fmt.Errorf("verify secret: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != secretHashAlgorithmTag {
		return fmt.Errorf("verify secret: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify secret: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify secret: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify secret: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return fmt.Errorf("verify secret: mismatch")
	}
	return nil
}
