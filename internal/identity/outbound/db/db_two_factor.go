package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

const twoFactorColumns = `user_id, secret_key, is_active, created_at, updated_at`

func scanTwoFactor(row pgx.Row) (*entity.TwoFactorSecret, error) {
	var t entity.TwoFactorSecret
	if err := row.Scan(&t.UserID, &t.SecretKey, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DB) GetTwoFactorSecret(ctx context.Context, userID int64) (_ *entity.TwoFactorSecret, err error) {
	ctx, span := s.startSpan(ctx, "GetTwoFactorSecret")
	defer func() { s.endSpan(span, err) }()

	t, err := scanTwoFactor(s.conn.QueryRow(ctx,
		`SELECT `+twoFactorColumns+` FROM two_factor_secrets WHERE user_id = $1`, userID))
	return t, s.mapError(err)
}

// MutateTwoFactorSecret locks the user's row and hands it (nil when missing)
// to fn. A nil result from fn leaves the row untouched; otherwise it is
// written back. Two concurrent first enrollments resolve to
// goerror.ErrConflict for the loser.
func (s *DB) MutateTwoFactorSecret(
	ctx context.Context,
	userID int64,
	fn func(current *entity.TwoFactorSecret) (*entity.TwoFactorSecret, error),
) (err error) {
	ctx, span := s.startSpan(ctx, "MutateTwoFactorSecret")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := scanTwoFactor(tx.QueryRow(ctx,
			`SELECT `+twoFactorColumns+` FROM two_factor_secrets WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		if current == nil {
			tag, err := tx.Exec(ctx, `
				INSERT INTO two_factor_secrets (user_id, secret_key, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id) DO NOTHING`,
				userID, next.SecretKey, next.IsActive, next.CreatedAt, next.UpdatedAt,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return goerror.ErrConflict
			}
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE two_factor_secrets SET secret_key = $2, is_active = $3, updated_at = $4
			WHERE user_id = $1`,
			userID, next.SecretKey, next.IsActive, next.UpdatedAt,
		)
		return err
	})
}
