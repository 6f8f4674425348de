package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Save(ctx, []byte(`{"v":1}`)))
	blob, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), blob)

	// the returned slice is a copy
	blob[0] = 'X'
	again, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), again)

	require.NoError(t, m.Save(ctx, []byte(`{"v":2}`)))
	blob, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), blob)
}

func TestSealerRoundTrip(t *testing.T) {
	salt := make([]byte, sealSaltLen)
	_, err := io.ReadFull(rand.Reader, salt)
	require.NoError(t, err)

	s, err := newSealer("device-secret", salt)
	require.NoError(t, err)

	plain := []byte(`{"current_key_id":"k1"}`)
	sealed, err := s.seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, sealed)

	opened, err := s.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestSealerRejectsTamperAndWrongSecret(t *testing.T) {
	salt := make([]byte, sealSaltLen)
	_, err := io.ReadFull(rand.Reader, salt)
	require.NoError(t, err)

	s, err := newSealer("device-secret", salt)
	require.NoError(t, err)
	sealed, err := s.seal([]byte("payload"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01
	_, err = s.open(tampered)
	assert.Error(t, err)

	_, err = s.open(sealed[:4])
	assert.Error(t, err)

	other, err := newSealer("wrong-secret", salt)
	require.NoError(t, err)
	_, err = other.open(sealed)
	assert.Error(t, err)
}

func TestSealerValidation(t *testing.T) {
	salt := make([]byte, sealSaltLen)
	_, err := newSealer("", salt)
	assert.Error(t, err)

	_, err = newSealer("secret", []byte("short"))
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, []byte(`{"v":1}`)))
	blob, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), blob)

	// upsert, not insert-only
	require.NoError(t, s.Save(ctx, []byte(`{"v":2}`)))
	blob, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), blob)
}

func TestSQLiteStoreSealed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(path, WithSealSecret("device-secret"))
	require.NoError(t, err)

	plain := []byte(`{"current_key_id":"k1"}`)
	require.NoError(t, s.Save(ctx, plain))

	// the raw row must not contain the plaintext
	raw, err := s.get(ctx, BlobName)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("current_key_id")))

	blob, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, plain, blob)
	require.NoError(t, s.Close())

	// reopen with the same secret: persisted salt makes the blob readable
	reopened, err := OpenSQLite(path, WithSealSecret("device-secret"))
	require.NoError(t, err)
	defer reopened.Close()
	blob, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, plain, blob)
}

func TestSQLiteStoreSealedWrongSecret(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(path, WithSealSecret("right"))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []byte("payload")))
	require.NoError(t, s.Close())

	wrong, err := OpenSQLite(path, WithSealSecret("wrong"))
	require.NoError(t, err)
	defer wrong.Close()
	_, err = wrong.Load(ctx)
	assert.Error(t, err)
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	blob, ok := f.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(blob))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	blob, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Bucket+"/"+*params.Key] = blob
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3WithClient(fake, "backup-bucket")

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, []byte(`{"v":1}`)))
	assert.Contains(t, fake.objects, "backup-bucket/"+BlobName)

	blob, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), blob)
}

func TestOpenFallsBackToSQLite(t *testing.T) {
	ctx := context.Background()

	// no vault configured: straight to sqlite
	st, err := Open(ctx, Options{SQLitePath: filepath.Join(t.TempDir(), "kv.db")})
	require.NoError(t, err)
	_, ok := st.(*SQLite)
	assert.True(t, ok)
	st.(*SQLite).Close()

	// vault configured but unreachable: logged fallback to sqlite
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:1") // nothing listens there
	t.Setenv("VAULT_TOKEN", "test-token")
	st, err = Open(ctx, Options{
		VaultPath:  "secret/data/securecore",
		SQLitePath: filepath.Join(t.TempDir(), "kv.db"),
		SealSecret: "device-secret",
	})
	require.NoError(t, err)
	sq, ok := st.(*SQLite)
	require.True(t, ok)
	defer sq.Close()

	require.NoError(t, sq.Save(ctx, []byte("blob")))
	blob, err := sq.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), blob)
}
