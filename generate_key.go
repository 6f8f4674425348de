package securecore

import (
	"encoding/hex"

	"github.com/readleaf/securecore/internal/security"
)

// GenerateEncryptionKey returns a fresh 256-bit symmetric key from a
// cryptographically secure random source.
func GenerateEncryptionKey() ([]byte, error) {
	return security.RandomBytes(32)
}

// GenerateStringEncryptionKey returns a fresh 256-bit key hex-encoded, the
// form stored in the key store (64 hex characters).
func GenerateStringEncryptionKey() (string, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
