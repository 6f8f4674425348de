package securecore

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readleaf/securecore/store"
)

func TestKeyStoreAddAndLookup(t *testing.T) {
	ks := newKeyStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, key, err := ks.addKey(now)
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, id, ks.CurrentKeyID)

	got, err := ks.lookup(id)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ks.lookup("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyStoreCorruptKeyMaterial(t *testing.T) {
	ks := newKeyStore()
	ks.Keys["bad-hex"] = keyRecord{Key: "not hex at all"}
	ks.Keys["short"] = keyRecord{Key: "abcd"}

	for _, id := range []string{"bad-hex", "short"} {
		_, err := ks.lookup(id)
		assert.ErrorIs(t, err, ErrDecryptionFailed, id)
	}
}

func TestNewKeyIDFormat(t *testing.T) {
	now := time.UnixMilli(1750000000000)
	id, err := newKeyID(now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^1750000000000-[0-9a-f]{4}$`), id)

	// same millisecond, distinct suffix
	other, err := newKeyID(now)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestLoadKeyStoreMissingBlob(t *testing.T) {
	ks, err := loadKeyStore(context.Background(), store.NewMemory())
	require.NoError(t, err)
	assert.Empty(t, ks.CurrentKeyID)
	assert.Empty(t, ks.Keys)
}

func TestLoadKeyStoreRoundTrip(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	ks := newKeyStore()
	id, _, err := ks.addKey(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, saveKeyStore(ctx, st, ks))

	loaded, err := loadKeyStore(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.CurrentKeyID)
	assert.Len(t, loaded.Keys, 1)
}

func TestLoadKeyStoreRejectsInconsistentBlob(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "not json", blob: "{{{"},
		{name: "current id missing from key set", blob: `{"current_key_id":"gone","keys":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			ctx := context.Background()
			require.NoError(t, st.Save(ctx, []byte(tt.blob)))

			_, err := loadKeyStore(ctx, st)
			assert.Error(t, err)
		})
	}
}

func TestKeyStoreBlobLayout(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	ks := newKeyStore()
	_, _, err := ks.addKey(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, saveKeyStore(ctx, st, ks))

	blob, err := st.Load(ctx)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &raw))
	assert.Contains(t, raw, "current_key_id")
	assert.Contains(t, raw, "keys")
}
