package otp

import (
	"encoding/base64"
	"image/jpeg"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTOTP(t *testing.T) *TOTP {
	t.Helper()

	o, err := NewTOTP(Config{Issuer: "gootp"})
	require.NoError(t, err)
	return o
}

func TestTOTPGenerate(t *testing.T) {
	o := newTOTP(t)

	secret, uri, err := o.Generate("a@example.com")
	require.NoError(t, err)

	assert.Len(t, secret, 32)
	_, err = secretEncoding.DecodeString(secret)
	assert.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", u.Scheme)
	assert.Equal(t, "totp", u.Host)
	assert.Equal(t, "/gootp:a@example.com", u.Path)
	assert.Equal(t, secret, u.Query().Get("secret"))
	assert.Equal(t, "gootp", u.Query().Get("issuer"))
}

func TestTOTPURIFromStoredSecret(t *testing.T) {
	o := newTOTP(t)

	secret, want, err := o.Generate("a@example.com")
	require.NoError(t, err)

	got, err := o.URI(secret, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = o.URI("not base32 !", "a@example.com")
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestTOTPRoundTrip(t *testing.T) {
	o := newTOTP(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	secret, _, err := o.Generate("a@example.com")
	require.NoError(t, err)
	other, _, err := o.Generate("b@example.com")
	require.NoError(t, err)

	code, err := o.GenerateCode(secret, at)
	require.NoError(t, err)

	t.Run("same secret", func(t *testing.T) {
		assert.True(t, o.Validate(code, secret, at))
	})

	t.Run("different secret", func(t *testing.T) {
		assert.False(t, o.Validate(code, other, at))
	})

	t.Run("previous step is rejected without skew", func(t *testing.T) {
		assert.False(t, o.Validate(code, secret, at.Add(30*time.Second)))
	})

	t.Run("previous step accepted with skew", func(t *testing.T) {
		lenient, err := NewTOTP(Config{Issuer: "gootp", Skew: 1})
		require.NoError(t, err)
		assert.True(t, lenient.Validate(code, secret, at.Add(30*time.Second)))
	})
}

func TestTOTPQRCode(t *testing.T) {
	o := newTOTP(t)

	_, uri, err := o.Generate("a@example.com")
	require.NoError(t, err)

	encoded, err := o.QRCode(uri)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	img, err := jpeg.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	_, err = o.QRCode("::bad")
	assert.Error(t, err)
}

func TestNewTOTPRequiresIssuer(t *testing.T) {
	_, err := NewTOTP(Config{})
	assert.ErrorIs(t, err, ErrMissingIssuer)
}

func TestDigitCode(t *testing.T) {
	gen := NewDigitCode()

	for range 200 {
		code, err := gen.Code()
		require.NoError(t, err)
		assert.True(t, IsDigitCode(code), code)
	}

	assert.False(t, IsDigitCode("12345"))
	assert.False(t, IsDigitCode("12345a"))
	assert.False(t, IsDigitCode("1234567"))
}
