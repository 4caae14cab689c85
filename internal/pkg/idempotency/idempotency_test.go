package idempotency_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/testkit"
)

func TestStateTrackerExec(t *testing.T) {
	client := testkit.Redis(t)
	tracker := idempotency.New(client)
	ctx := context.Background()

	t.Run("runs once", func(t *testing.T) {
		calls := 0
		fn := func(context.Context) error { calls++; return nil }

		require.NoError(t, tracker.Exec(ctx, "evt-1", fn))
		err := tracker.Exec(ctx, "evt-1", fn)

		assert.ErrorIs(t, err, idempotency.ErrAlreadyCompleted)
		assert.Equal(t, 1, calls)
	})

	t.Run("failure releases the key", func(t *testing.T) {
		boom := errors.New("smtp down")
		calls := 0

		err := tracker.Exec(ctx, "evt-2", func(context.Context) error { calls++; return boom })
		assert.ErrorIs(t, err, boom)

		err = tracker.Exec(ctx, "evt-2", func(context.Context) error { calls++; return nil })
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("in progress", func(t *testing.T) {
		state, err := tracker.Acquire(ctx, "evt-3", time.Minute)
		require.NoError(t, err)
		require.Equal(t, idempotency.StateNone, state)

		err = tracker.Exec(ctx, "evt-3", func(context.Context) error { return nil })
		assert.ErrorIs(t, err, idempotency.ErrAlreadyInProgress)
	})

	t.Run("garbage state", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "idempotency:evt-4", "weird", time.Minute).Err())

		_, err := tracker.Acquire(ctx, "evt-4", time.Minute)
		assert.ErrorIs(t, err, idempotency.ErrInvalidState)
	})
}
