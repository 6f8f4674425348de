package security

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBytes(t *testing.T) {
	b, err := RandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)

	other, err := RandomBytes(16)
	require.NoError(t, err)
	assert.NotEqual(t, b, other)
}

func TestRandomHex(t *testing.T) {
	s, err := RandomHex(4)
	require.NoError(t, err)
	assert.Len(t, s, 8)
	_, err = hex.DecodeString(s)
	assert.NoError(t, err)
}
