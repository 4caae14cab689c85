package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type RefreshInput struct {
	RefreshToken string `validate:"required"`
}

// Refresh exchanges a live refresh token for a new pair and revokes the old
// token. Presenting a token twice fails the second time.
func (s *Usecase) Refresh(ctx context.Context, in RefreshInput) (*TokenOutput, error) {
	ctx, span := s.startSpan(ctx, "Refresh")
	defer span.End()

	in.RefreshToken = strings.TrimSpace(in.RefreshToken)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	digest, err := s.hashRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		return nil, err
	}

	cur, err := s.repoDB.GetRefreshToken(ctx, digest)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}
	if !cur.Usable(s.clock.Now()) {
		return nil, errInvalidToken
	}

	user, err := s.repoDB.GetUserByID(ctx, cur.UserID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by id", "user_id", cur.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	out, next, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	err = s.repoDB.RotateRefreshToken(ctx, cur.ID, next)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token reused concurrently", "user_id", user.ID, "token_id", cur.ID)
		return nil, errInvalidToken
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}
