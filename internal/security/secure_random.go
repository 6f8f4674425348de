// Package security provides cryptographically secure random material for the
// key store and field cipher.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// RandomBytes returns size cryptographically secure random bytes.
func RandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid random size: %d", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("secure random generation failed: %w", err)
	}
	return data, nil
}

// RandomHex returns a hex string of size random bytes (2*size characters).
func RandomHex(size int) (string, error) {
	data, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}
