package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type VerifyOTPInput struct {
	Email            string `validate:"required,email"`
	VerificationType string `validate:"required"`
	Code             string `validate:"required"`
}

type VerifyOTPOutput struct {
	Email            string
	Code             string
	VerificationType entity.VerificationType
	Status           entity.VerificationStatus
}

// VerifyOTP reports the terminal status of a submitted code. Only the caller
// that wins the mark-used update observes StatusVerified.
func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	typ, err := mailableType(in.VerificationType)
	if err != nil {
		return nil, err
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewNotFound("user not found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	rec, err := s.repoDB.GetLatestOTP(ctx, user.ID, typ)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewInvalidFormat("invalid code")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get latest otp", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	status := rec.Check(in.Code, s.clock.Now())
	if status == entity.StatusVerified {
		consumed, err := s.repoDB.ConsumeOTP(ctx, rec.ID, user.ID, typ == entity.VerificationEmail)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo consume otp", "user_id", user.ID, "otp_id", rec.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		if !consumed {
			status = entity.StatusUsed
		}
	}

	s.otpVerified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", typ.String()),
		attribute.String("status", status.String()),
	))

	return &VerifyOTPOutput{
		Email:            user.Email,
		Code:             in.Code,
		VerificationType: typ,
		Status:           status,
	}, nil
}
