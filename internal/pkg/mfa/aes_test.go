package mfa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCM(t *testing.T) {
	enc := NewAESGCM(StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)})
	scope := Scope{UserID: 1, Purpose: PurposeTOTPSecret}

	t.Run("round trip", func(t *testing.T) {
		ct, err := enc.Encrypt([]byte("JBSWY3DPEHPK3PXP"), scope)
		require.NoError(t, err)

		pt, err := enc.Decrypt(ct, scope)
		require.NoError(t, err)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", string(pt))
	})

	t.Run("nonce differs per call", func(t *testing.T) {
		a, err := enc.Encrypt([]byte("x"), scope)
		require.NoError(t, err)
		b, err := enc.Encrypt([]byte("x"), scope)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("other scope fails", func(t *testing.T) {
		ct, err := enc.Encrypt([]byte("secret"), scope)
		require.NoError(t, err)

		_, err = enc.Decrypt(ct, Scope{UserID: 2, Purpose: PurposeTOTPSecret})
		assert.ErrorIs(t, err, ErrDecryptFailed)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := enc.Encrypt(nil, scope)
		assert.ErrorIs(t, err, ErrPlaintextEmpty)

		_, err = enc.Decrypt([]byte{0, 1}, scope)
		assert.ErrorIs(t, err, ErrCiphertextTooShort)

		_, err = NewAESGCM(StaticKeyProvider{KeyBytes: []byte("short")}).Encrypt([]byte("x"), scope)
		assert.ErrorIs(t, err, ErrInvalidKeyLength)

		_, err = NewAESGCM(StaticKeyProvider{}).Encrypt([]byte("x"), scope)
		assert.ErrorIs(t, err, ErrMissingStaticKey)

		var nilEnc *AESGCM
		_, err = nilEnc.Encrypt([]byte("x"), scope)
		assert.ErrorIs(t, err, ErrEncryptorNotConfigured)
	})
}
