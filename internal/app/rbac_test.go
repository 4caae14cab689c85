package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnforcer(t *testing.T) {
	t.Run("admin role grants configured permissions", func(t *testing.T) {
		// Arrange
		e, err := newEnforcer([]string{"admin:identity.users:create", "admin : identity.2fa : *"})
		require.NoError(t, err)

		_, err = e.AddGroupingPolicy("1001", "admin")
		require.NoError(t, err)

		// Act & Assert
		ok, err := e.Enforce("1001", "identity.users", "create")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = e.Enforce("1001", "identity.2fa", "read")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = e.Enforce("1002", "identity.users", "create")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed policy", func(t *testing.T) {
		for _, raw := range []string{"admin:identity.users", "admin::create", "a:b:c:d"} {
			_, err := newEnforcer([]string{raw})
			assert.ErrorIs(t, err, errInvalidPolicy, raw)
		}
	})
}
