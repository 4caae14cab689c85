package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost, "pepper")

	hashed, err := h.Hash("S3cret!pass")
	require.NoError(t, err)

	assert.True(t, h.Verify(string(hashed), "S3cret!pass"))
	assert.False(t, h.Verify(string(hashed), "wrong"))
	assert.False(t, h.Verify("", "S3cret!pass"))
	assert.False(t, NewBcrypt(bcrypt.MinCost, "other").Verify(string(hashed), "S3cret!pass"))
}

func TestHMACSHA256(t *testing.T) {
	h := NewHMACSHA256("secret")

	a, err := h.Hash("token")
	require.NoError(t, err)
	b, err := h.Hash("token")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.True(t, h.Verify(string(a), "token"))
	assert.False(t, h.Verify(string(a), "token2"))
	assert.False(t, NewHMACSHA256("other").Verify(string(a), "token"))
}
