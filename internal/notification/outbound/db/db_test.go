package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/notification/entity"
	"github.com/shandysiswandi/gootp/internal/notification/outbound/db"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/testkit"
	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
)

func TestDeliveryLifecycle(t *testing.T) {
	testkit.RequireIntegration(t)

	repo := db.NewDB(testkit.Postgres(t), instrument.NewNoop())
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	d := entity.NewEmailDelivery(7001, "01JNEVENT", "Email Verification", []string{"ada@example.com"}, "log", now)
	require.NoError(t, repo.CreateDelivery(ctx, d))

	got, err := repo.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryQueued, got.Status)
	assert.Equal(t, []string{"ada@example.com"}, got.Recipients)

	later := now.Add(time.Second)
	require.NoError(t, repo.UpdateDeliveryStatus(ctx, d.ID, entity.DeliverySent, "", valueobject.JSONMap{"attempts": 2}, later))

	got, err = repo.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliverySent, got.Status)
	assert.Equal(t, 2, got.Metadata.GetInt("attempts"))
	assert.True(t, later.Equal(got.UpdatedAt))

	err = repo.UpdateDeliveryStatus(ctx, 9999, entity.DeliveryFailed, "x", valueobject.JSONMap{}, later)
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	_, err = repo.GetDelivery(ctx, 9999)
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}
