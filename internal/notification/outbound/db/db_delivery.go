package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/gootp/internal/notification/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
)

func (s *DB) CreateDelivery(ctx context.Context, d entity.EmailDelivery) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDelivery")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO email_deliveries (id, event_id, subject, recipients, provider, status, error, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		d.ID, d.EventID, d.Subject, d.Recipients, d.Provider, d.Status.String(), d.Error, d.Metadata, d.CreatedAt,
	)
	return s.mapError(err)
}

// UpdateDeliveryStatus moves a delivery to its terminal status.
func (s *DB) UpdateDeliveryStatus(ctx context.Context, id int64, status entity.DeliveryStatus, errMsg string, meta valueobject.JSONMap, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDeliveryStatus")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE email_deliveries
		SET status = $2, error = $3, metadata = metadata || $4, updated_at = $5
		WHERE id = $1`,
		id, status.String(), errMsg, meta, at,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (s *DB) GetDelivery(ctx context.Context, id int64) (_ *entity.EmailDelivery, err error) {
	ctx, span := s.startSpan(ctx, "GetDelivery")
	defer func() { s.endSpan(span, err) }()

	var (
		d      entity.EmailDelivery
		status string
	)
	err = s.conn.QueryRow(ctx, `
		SELECT id, event_id, subject, recipients, provider, status, error, metadata, created_at, updated_at
		FROM email_deliveries WHERE id = $1`, id,
	).Scan(&d.ID, &d.EventID, &d.Subject, &d.Recipients, &d.Provider, &status, &d.Error, &d.Metadata, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	d.Status = entity.DeliveryStatus(status)
	return &d, nil
}
