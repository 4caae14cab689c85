package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
)

const userColumns = `id, username, email, password, first_name, last_name,
	is_email_verified, is_staff, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.IsEmailVerified, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail matches case-insensitively.
func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	return u, s.mapError(err)
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, s.mapError(err)
}

func (s *DB) ListStaffUserIDs(ctx context.Context) (_ []int64, err error) {
	ctx, span := s.startSpan(ctx, "ListStaffUserIDs")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT id FROM users WHERE is_staff = TRUE ORDER BY id`)
	if err != nil {
		return nil, s.mapError(err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	return ids, s.mapError(err)
}

// CreateUser inserts the user and its settings atomically.
func (s *DB) CreateUser(ctx context.Context, u entity.User, st entity.UserSettings) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password, first_name, last_name,
				is_email_verified, is_staff, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			u.ID, u.Username, u.Email, u.Password, u.FirstName, u.LastName,
			u.IsEmailVerified, u.IsStaff, u.CreatedAt,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO user_settings (user_id, language, timezone, created_at)
			VALUES ($1, $2, $3, $4)`,
			st.UserID, st.Language, st.Timezone, st.CreatedAt,
		)
		return err
	})
}

func (s *DB) GetUserSettings(ctx context.Context, userID int64) (_ *entity.UserSettings, err error) {
	ctx, span := s.startSpan(ctx, "GetUserSettings")
	defer func() { s.endSpan(span, err) }()

	var st entity.UserSettings
	err = s.conn.QueryRow(ctx,
		`SELECT user_id, language, timezone, created_at FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&st.UserID, &st.Language, &st.Timezone, &st.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &st, nil
}
