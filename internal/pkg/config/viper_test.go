package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViperFromBytes(t *testing.T) {
	// Arrange
	raw := []byte(`
app:
  env: development
modules:
  identity:
    otp:
      expiration_minutes: 10
      cooldown_seconds: 60
    rbac:
      policies: "admin:identity.users:create, ,admin:identity.2fa:read"
  notification:
    labels: "a:1,b:2,broken"
secret: ` + base64.StdEncoding.EncodeToString([]byte("key")) + `
`)

	// Act
	cfg, err := NewViperFromBytes("yaml", raw, WithDefaults(map[string]any{"mail.driver": "log"}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.GetString("app.env"))
	assert.Equal(t, 10*time.Minute, cfg.GetMinute("modules.identity.otp.expiration_minutes"))
	assert.Equal(t, time.Minute, cfg.GetSecond("modules.identity.otp.cooldown_seconds"))
	assert.Equal(t, []string{"admin:identity.users:create", "admin:identity.2fa:read"}, cfg.GetArray("modules.identity.rbac.policies"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, cfg.GetMap("modules.notification.labels"))
	assert.Equal(t, []byte("key"), cfg.GetBinary("secret"))
	assert.Equal(t, "log", cfg.GetString("mail.driver"))
	assert.Empty(t, cfg.GetArray("missing"))
	assert.NoError(t, cfg.Close())
}

func TestNewViperFromBytesRequiresType(t *testing.T) {
	_, err := NewViperFromBytes(" ", nil)
	assert.Error(t, err)
}
