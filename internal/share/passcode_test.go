package share_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohits-web03/sharegate/internal/share"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := share.NewBcryptHasher(bcrypt.MinCost)

	for _, plaintext := range []string{"1234", "correct horse battery staple", "pässwörd"} {
		digest, err := h.Hash(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, digest)
		assert.True(t, h.Verify(plaintext, digest), "verify(%q)", plaintext)
		assert.False(t, h.Verify(plaintext+"x", digest))
		assert.False(t, h.Verify("", digest))
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := share.NewBcryptHasher(bcrypt.MinCost)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_RejectsBadInput(t *testing.T) {
	h := share.NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.True(t, errors.Is(err, share.ErrInvalidInput))

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.True(t, errors.Is(err, share.ErrInvalidInput))

	assert.False(t, h.Verify("1234", "not-a-digest"))
}
