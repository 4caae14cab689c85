package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, q execer, t entity.RefreshToken) error {
	_, err := q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return err
}

func (s *DB) CreateRefreshToken(ctx context.Context, t entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	return s.mapError(insertRefreshToken(ctx, s.conn, t))
}

func (s *DB) GetRefreshToken(ctx context.Context, tokenHash string) (_ *entity.RefreshToken, err error) {
	ctx, span := s.startSpan(ctx, "GetRefreshToken")
	defer func() { s.endSpan(span, err) }()

	var t entity.RefreshToken
	err = s.conn.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &t, nil
}

// RotateRefreshToken revokes oldID and stores next. goerror.ErrNotFound means
// oldID was already revoked, typically by a concurrent refresh.
func (s *DB) RotateRefreshToken(ctx context.Context, oldID int64, next entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "RotateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
			oldID, next.CreatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return goerror.ErrNotFound
		}
		return insertRefreshToken(ctx, tx, next)
	})
}

// RevokeRefreshToken reports false when no live token of userID matches.
func (s *DB) RevokeRefreshToken(ctx context.Context, userID int64, tokenHash string, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "RevokeRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $3
		WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > $3`,
		userID, tokenHash, at,
	)
	if err != nil {
		return false, s.mapError(err)
	}
	return tag.RowsAffected() > 0, nil
}
