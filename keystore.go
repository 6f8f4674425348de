package securecore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/readleaf/securecore/internal/security"
	"github.com/readleaf/securecore/store"
)

// keyRecord is one stored key: a 256-bit secret hex-encoded plus its creation
// time, which drives age-based rotation.
type keyRecord struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// keyStore is the persisted record of every key ever created. CurrentKeyID is
// empty until the first key exists, and always present in Keys afterwards.
// Entries are never removed: an envelope stays decryptable for as long as its
// key id exists here, and rotation only ever adds.
type keyStore struct {
	CurrentKeyID string               `json:"current_key_id"`
	Keys         map[string]keyRecord `json:"keys"`
}

func newKeyStore() *keyStore {
	return &keyStore{Keys: make(map[string]keyRecord)}
}

// lookup decodes the named key, enforcing the 64-hex-character invariant.
func (ks *keyStore) lookup(keyID string) ([]byte, error) {
	rec, ok := ks.Keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrKeyNotFound, keyID)
	}
	key, err := hex.DecodeString(rec.Key)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: stored key %q is corrupt", ErrDecryptionFailed, keyID)
	}
	return key, nil
}

// addKey inserts a fresh key and makes it current.
func (ks *keyStore) addKey(now time.Time) (string, []byte, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", nil, err
	}
	id, err := newKeyID(now)
	if err != nil {
		return "", nil, err
	}
	ks.Keys[id] = keyRecord{Key: hex.EncodeToString(key), CreatedAt: now}
	ks.CurrentKeyID = id
	return id, key, nil
}

// newKeyID builds a time-based key identifier. The random suffix keeps two
// rotations within the same millisecond from colliding.
func newKeyID(now time.Time) (string, error) {
	suffix, err := security.RandomHex(2)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix), nil
}

// loadKeyStore reads and decodes the persisted blob. A missing blob is a
// fresh, empty store, not an error.
func loadKeyStore(ctx context.Context, st store.Store) (*keyStore, error) {
	blob, err := st.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return newKeyStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load key store: %w", err)
	}
	ks := newKeyStore()
	if err := json.Unmarshal(blob, ks); err != nil {
		return nil, fmt.Errorf("decode key store blob: %w", err)
	}
	if ks.Keys == nil {
		ks.Keys = make(map[string]keyRecord)
	}
	if ks.CurrentKeyID != "" {
		if _, ok := ks.Keys[ks.CurrentKeyID]; !ok {
			return nil, fmt.Errorf("decode key store blob: current key %q missing from key set", ks.CurrentKeyID)
		}
	}
	return ks, nil
}

func saveKeyStore(ctx context.Context, st store.Store, ks *keyStore) error {
	blob, err := json.Marshal(ks)
	if err != nil {
		return fmt.Errorf("encode key store: %w", err)
	}
	if err := st.Save(ctx, blob); err != nil {
		return fmt.Errorf("persist key store: %w", err)
	}
	return nil
}
