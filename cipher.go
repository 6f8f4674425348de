package securecore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/readleaf/securecore/internal/security"
	"github.com/readleaf/securecore/store"
)

// FieldCipher encrypts and decrypts individual strings for at-rest protection
// of locally cached values. It owns its key lifecycle: a 256-bit key is
// created lazily on first use, rotated once it exceeds MaxKeyAge, and old
// keys are retained forever so any previously written envelope stays
// decryptable.
//
// Ciphertext envelope: "<keyId>:<ivHex>:<ciphertextBase64>". The IV is a
// fresh random 16-byte value per call, so encrypting the same plaintext twice
// yields different envelopes.
//
// Key-store access is read-modify-write without a transaction. Two concurrent
// first-time encrypts may each generate and persist a key; the last writer's
// key becomes current and the loser's envelope still carries its own key id,
// which the winner's store retains, so nothing becomes undecryptable. That
// lost-update outcome is accepted; see the concurrency note in DESIGN.md
// before adding a lock here.
type FieldCipher struct {
	store     store.Store
	logger    *slog.Logger
	maxKeyAge time.Duration
	now       func() time.Time
}

// CipherOption customizes a FieldCipher.
type CipherOption func(*FieldCipher)

// WithCipherLogger sets the structured logger.
func WithCipherLogger(l *slog.Logger) CipherOption {
	return func(f *FieldCipher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMaxKeyAge overrides the age at which the current key is rotated on next
// use. Defaults to MaxKeyAge (90 days).
func WithMaxKeyAge(age time.Duration) CipherOption {
	return func(f *FieldCipher) {
		if age > 0 {
			f.maxKeyAge = age
		}
	}
}

// withClock fixes the cipher's notion of now. Test hook.
func withClock(now func() time.Time) CipherOption {
	return func(f *FieldCipher) {
		f.now = now
	}
}

// NewFieldCipher creates a field cipher persisting its keys in st.
func NewFieldCipher(st store.Store, opts ...CipherOption) *FieldCipher {
	f := &FieldCipher{
		store:     st,
		logger:    slog.Default(),
		maxKeyAge: MaxKeyAge,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// KeyInfo describes the key store without exposing key material.
type KeyInfo struct {
	CurrentKeyID string
	KeyCount     int
	CreatedAt    time.Time
}

// Encrypt encrypts plaintext under the current key, creating or rotating the
// key first if needed, and returns the three-part envelope. Failures surface
// as a generic encryption error that never carries key material.
func (f *FieldCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	keyID, key, err := f.currentKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	iv, err := security.RandomBytes(aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: cipher init", ErrEncryptionFailed)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return fmt.Sprintf("%s:%s:%s",
		keyID,
		hex.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(ciphertext),
	), nil
}

// Decrypt reverses Encrypt. The envelope splits on its first two colons only,
// so plaintexts containing colons round-trip. A malformed envelope fails with
// ErrMalformedEnvelope before any key lookup; an envelope naming a key id the
// store has never held fails with ErrKeyNotFound.
func (f *FieldCipher) Decrypt(ctx context.Context, envelope string) (string, error) {
	parts := strings.SplitN(envelope, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: expected keyId:iv:ciphertext", ErrMalformedEnvelope)
	}
	keyID, ivHex, ctB64 := parts[0], parts[1], parts[2]

	ks, err := loadKeyStore(ctx, f.store)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	key, err := ks.lookup(keyID)
	if err != nil {
		return "", err
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: bad initialization vector", ErrDecryptionFailed)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: cipher init", ErrDecryptionFailed)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// Rotate unconditionally generates a new key and makes it current,
// independent of the current key's age. Old keys are retained so existing
// envelopes keep decrypting.
func (f *FieldCipher) Rotate(ctx context.Context) error {
	ks, err := loadKeyStore(ctx, f.store)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	id, _, err := ks.addKey(f.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := saveKeyStore(ctx, f.store, ks); err != nil {
		return fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	f.logger.Info("encryption key rotated", "key_id", id, "key_count", len(ks.Keys))
	return nil
}

// KeyInfo reports the current key id, total key count, and the current key's
// creation time. A store with no keys yet reports an empty id and zero count.
func (f *FieldCipher) KeyInfo(ctx context.Context) (KeyInfo, error) {
	ks, err := loadKeyStore(ctx, f.store)
	if err != nil {
		return KeyInfo{}, err
	}
	info := KeyInfo{CurrentKeyID: ks.CurrentKeyID, KeyCount: len(ks.Keys)}
	if rec, ok := ks.Keys[ks.CurrentKeyID]; ok {
		info.CreatedAt = rec.CreatedAt
	}
	return info, nil
}

// currentKey returns the active key, creating a fresh one when none exists or
// the current one has outlived maxKeyAge. The new key is persisted before any
// ciphertext references it.
func (f *FieldCipher) currentKey(ctx context.Context) (string, []byte, error) {
	ks, err := loadKeyStore(ctx, f.store)
	if err != nil {
		return "", nil, err
	}

	if ks.CurrentKeyID != "" {
		if rec, ok := ks.Keys[ks.CurrentKeyID]; ok && f.now().Sub(rec.CreatedAt) < f.maxKeyAge {
			key, err := ks.lookup(ks.CurrentKeyID)
			if err != nil {
				return "", nil, err
			}
			return ks.CurrentKeyID, key, nil
		}
	}

	id, key, err := ks.addKey(f.now())
	if err != nil {
		return "", nil, err
	}
	if err := saveKeyStore(ctx, f.store, ks); err != nil {
		return "", nil, err
	}
	f.logger.Info("encryption key created", "key_id", id, "key_count", len(ks.Keys))
	return id, key, nil
}

// pkcs7Pad pads data to a whole number of blocks.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}
	return out
}

// pkcs7Unpad validates and strips PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
