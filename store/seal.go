package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for deriving the blob-sealing key from the device
// secret. Matches the usual interactive-login cost profile.
const (
	sealTime    = 3
	sealMemory  = 64 * 1024
	sealThreads = 2
	sealKeyLen  = 32
	sealSaltLen = 16
)

// sealer obfuscates the key-store blob in backends that are not themselves a
// secure location. It is AES-GCM under an argon2id-derived key: enough to
// keep key material from sitting in plain sight in a world-readable file, not
// a substitute for platform-backed storage.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(secret string, salt []byte) (*sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("sealing secret must not be empty")
	}
	if len(salt) != sealSaltLen {
		return nil, fmt.Errorf("sealing salt must be %d bytes, got %d", sealSaltLen, len(salt))
	}
	key := argon2.IDKey([]byte(secret), salt, sealTime, sealMemory, sealThreads, sealKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sealer gcm init: %w", err)
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("seal nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, fmt.Errorf("sealed blob too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed blob: %w", err)
	}
	return plain, nil
}
