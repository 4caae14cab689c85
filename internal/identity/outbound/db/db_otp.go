package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
)

// IssueOTP retires every unused code of the same user and type, then inserts
// code. A concurrent issue surfaces as goerror.ErrConflict through the
// otp_codes_one_active_key partial index.
func (s *DB) IssueOTP(ctx context.Context, code entity.OtpCode) (err error) {
	ctx, span := s.startSpan(ctx, "IssueOTP")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE otp_codes SET is_used = TRUE WHERE user_id = $1 AND type = $2 AND is_used = FALSE`,
			code.UserID, code.Type,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO otp_codes (id, user_id, code, type, expires_at, is_used, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)`,
			code.ID, code.UserID, code.Code, code.Type, code.ExpiresAt, code.CreatedAt,
		)
		return err
	})
}

// GetLatestOTP picks the newest unused code, falling back to the newest used
// one so a replay can be reported as such.
func (s *DB) GetLatestOTP(ctx context.Context, userID int64, typ entity.VerificationType) (_ *entity.OtpCode, err error) {
	ctx, span := s.startSpan(ctx, "GetLatestOTP")
	defer func() { s.endSpan(span, err) }()

	var c entity.OtpCode
	err = s.conn.QueryRow(ctx, `
		SELECT id, user_id, code, type, expires_at, is_used, created_at
		FROM otp_codes
		WHERE user_id = $1 AND type = $2
		ORDER BY is_used ASC, created_at DESC, id DESC
		LIMIT 1`, userID, typ,
	).Scan(&c.ID, &c.UserID, &c.Code, &c.Type, &c.ExpiresAt, &c.IsUsed, &c.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &c, nil
}

// ConsumeOTP marks the code used if nobody else has. When verifyEmail is set
// the owner's email is flagged verified in the same transaction. It reports
// false when the code was already consumed.
func (s *DB) ConsumeOTP(ctx context.Context, id, userID int64, verifyEmail bool) (consumed bool, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeOTP")
	defer func() { s.endSpan(span, err) }()

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE otp_codes SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		consumed = true

		if !verifyEmail {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE users SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID)
		return err
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}
