package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	a, err := New(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	sealed, err := a.Seal("tok-123", "jane@x.com")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tok-123")

	again, err := a.Seal("tok-123", "jane@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "fresh nonce per seal")

	got, err := a.Open(sealed, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)

	_, err = a.Open(sealed, "bob@x.com")
	assert.Error(t, err, "token is bound to its owner")
}

func TestOpenRejectsGarbage(t *testing.T) {
	a, err := New(bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)

	_, err = a.Open("AAAA", "")
	assert.ErrorIs(t, err, ErrShortCiphertext)

	_, err = a.Open("!!not base64!!", "")
	assert.Error(t, err)
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}
