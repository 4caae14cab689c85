package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
)

type LogoutInput struct {
	RefreshToken string `validate:"required"`
}

func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	in.RefreshToken = strings.TrimSpace(in.RefreshToken)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	digest, err := s.hashRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		return err
	}

	revoked, err := s.repoDB.RevokeRefreshToken(ctx, clm.UserID, digest, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo revoke refresh token", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}
	if !revoked {
		return errInvalidToken
	}

	return nil
}
