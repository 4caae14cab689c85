package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
)

func TestShippedConfigTOTPWindow(t *testing.T) {
	cfg, err := config.NewViper("../../config/config.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cfg.Close() })

	assert.Zero(t, cfg.GetUint("modules.identity.totp.skew"))

	totp, err := otp.NewTOTP(otp.Config{
		Issuer: cfg.GetString("modules.identity.totp.issuer"),
		Period: cfg.GetUint("modules.identity.totp.period"),
		Skew:   cfg.GetUint("modules.identity.totp.skew"),
	})
	require.NoError(t, err)

	secret, _, err := totp.Generate("a@example.com")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)

	assert.True(t, totp.Validate(code, secret, at))
	assert.False(t, totp.Validate(code, secret, at.Add(30*time.Second)), "code from the previous step")
	assert.False(t, totp.Validate(code, secret, at.Add(-30*time.Second)), "code from the next step")
}
