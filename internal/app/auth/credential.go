// Package auth gates room entry: it verifies room passwords and throttles
// repeated failures per (room, ip).
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"golang.org/x/crypto/pbkdf2"
)

const (
	Algorithm         = "pbkdf2"
	MinIterations     = 600000
	KeyLength         = 32
	DefaultSaltLength = 16
)

// Hash is a parsed "pbkdf2$<iterations>$<saltHex>$<hashHex>" descriptor
// (PBKDF2 with HMAC-SHA256).
type Hash struct {
	Iterations int
	Salt       []byte
	Key        []byte
}

// ParseHash validates a descriptor against the configured minimum iteration
// count and key length.
func ParseHash(descriptor string, minIterations, keyLen int) (*Hash, error) {
	parts := strings.Split(descriptor, "$")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: want 4 fields, got %d", domain.ErrInvalidCredential, len(parts))
	}
	if parts[0] != Algorithm {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", domain.ErrInvalidCredential, parts[0])
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < minIterations {
		return nil, fmt.Errorf("%w: iterations %q below %d", domain.ErrInvalidCredential, parts[1], minIterations)
	}
	if parts[2] == "" || parts[3] == "" {
		return nil, fmt.Errorf("%w: empty salt or hash", domain.ErrInvalidCredential)
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", domain.ErrInvalidCredential, err)
	}
	key, err := hex.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: hash: %v", domain.ErrInvalidCredential, err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("%w: hash is %d bytes, want %d", domain.ErrInvalidCredential, len(key), keyLen)
	}
	return &Hash{Iterations: iterations, Salt: salt, Key: key}, nil
}

// Verify derives a key from password and compares it in fixed time.
func (h *Hash) Verify(password string) bool {
	derived := pbkdf2.Key([]byte(password), h.Salt, h.Iterations, len(h.Key), sha256.New)
	return subtle.ConstantTimeCompare(derived, h.Key) == 1
}

func (h *Hash) String() string {
	return fmt.Sprintf("%s$%d$%s$%s", Algorithm, h.Iterations, hex.EncodeToString(h.Salt), hex.EncodeToString(h.Key))
}

// HashPassword returns a descriptor for password with a random salt.
func HashPassword(password string, iterations, keyLen int) (string, error) {
	salt := make([]byte, DefaultSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h := &Hash{
		Iterations: iterations,
		Salt:       salt,
		Key:        pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New),
	}
	return h.String(), nil
}

// EqualPlain compares two plaintext secrets. A length mismatch fails fast;
// equal lengths are compared in fixed time.
func EqualPlain(expected, supplied string) bool {
	if len(expected) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}
