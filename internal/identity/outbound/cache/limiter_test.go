package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/identity/outbound/cache"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/testkit"
)

func TestLimiterAllowIssue(t *testing.T) {
	testkit.RequireIntegration(t)

	l := cache.NewLimiter(testkit.Redis(t), instrument.NewNoop())
	ctx := context.Background()

	t.Run("cooldown", func(t *testing.T) {
		p := usecase.OTPRateLimit{Cooldown: 30 * time.Second}

		wait, err := l.AllowIssue(ctx, 1, entity.VerificationEmail, p)
		require.NoError(t, err)
		assert.Zero(t, wait)

		wait, err = l.AllowIssue(ctx, 1, entity.VerificationEmail, p)
		require.NoError(t, err)
		assert.Greater(t, wait, 25*time.Second)

		wait, err = l.AllowIssue(ctx, 1, entity.VerificationPassword, p)
		require.NoError(t, err)
		assert.Zero(t, wait, "types are limited independently")
	})

	t.Run("window cap", func(t *testing.T) {
		p := usecase.OTPRateLimit{Max: 2, Window: time.Minute}

		for range 2 {
			wait, err := l.AllowIssue(ctx, 2, entity.VerificationEmail, p)
			require.NoError(t, err)
			assert.Zero(t, wait)
		}

		wait, err := l.AllowIssue(ctx, 2, entity.VerificationEmail, p)
		require.NoError(t, err)
		assert.Greater(t, wait, time.Duration(0))
	})

	t.Run("disabled", func(t *testing.T) {
		for range 5 {
			wait, err := l.AllowIssue(ctx, 3, entity.VerificationEmail, usecase.OTPRateLimit{})
			require.NoError(t, err)
			assert.Zero(t, wait)
		}
	})
}
