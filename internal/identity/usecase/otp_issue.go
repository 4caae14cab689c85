package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type IssueOTPInput struct {
	Email            string
	VerificationType string
}

type IssueOTPOutput struct {
	TTLSeconds int64
}

// mailableType accepts only the purposes whose codes are delivered by email.
func mailableType(raw string) (entity.VerificationType, error) {
	typ, err := entity.ParseVerificationType(strings.TrimSpace(raw))
	if err != nil || !typ.Mailable() {
		return "", goerror.NewInvalidInput(nil, "verification_type", "Invalid verification")
	}
	return typ, nil
}

func (s *Usecase) IssueOTP(ctx context.Context, in IssueOTPInput) (*IssueOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "IssueOTP")
	defer span.End()

	typ, err := mailableType(in.VerificationType)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		if typ == entity.VerificationEmail {
			return nil, goerror.NewInvalidInput(nil, "email", "Email is required for email verification.")
		}
		return nil, goerror.NewInvalidInput(nil, "email", "Email is required.")
	}

	user, err := s.repoDB.GetUserByEmail(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp requested for unknown user", "email", email)
		return nil, goerror.NewNotFound("user not found")
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if typ == entity.VerificationEmail {
		if user.Email != email {
			return nil, goerror.NewInvalidInput(nil, "email", "Invalid email address.")
		}
		if user.IsEmailVerified {
			return nil, goerror.NewInvalidInput(nil, "email", "Email already verified.")
		}
	}

	if err := s.checkIssueLimit(ctx, user.ID, typ); err != nil {
		return nil, err
	}

	ttl := s.otpTTL()
	code, err := s.persistOTP(ctx, user.ID, typ, ttl)
	if err != nil {
		return nil, err
	}

	s.otpIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typ.String())))

	// delivery is asynchronous and must not fail the request
	if err := s.repoMessaging.PublishOTPIssued(ctx, OTPIssuedEvent{
		ID:                s.eventID.Generate(),
		UserID:            user.ID,
		Email:             user.Email,
		Name:              user.DisplayName(),
		Code:              code.Code,
		Type:              typ,
		ExpirationMinutes: int(ttl.Minutes()),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish otp issued event", "user_id", user.ID, "error", err)
	}

	return &IssueOTPOutput{TTLSeconds: int64(ttl.Seconds())}, nil
}

// checkIssueLimit fails open when Redis is unavailable.
func (s *Usecase) checkIssueLimit(ctx context.Context, userID int64, typ entity.VerificationType) error {
	wait, err := s.repoLimiter.AllowIssue(ctx, userID, typ, s.otpRateLimit())
	if err != nil {
		slog.WarnContext(ctx, "otp issue limiter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if wait > 0 {
		secs := int64(math.Ceil(wait.Seconds()))
		slog.WarnContext(ctx, "otp issue rate limited", "user_id", userID, "type", typ, "retry_after_seconds", secs)
		return goerror.NewBusiness(fmt.Sprintf("Too many requests. Try again in %d seconds.", secs), goerror.CodeTooManyRequest)
	}
	return nil
}

const (
	issueMaxRetries = 4
	issueBackoff    = 5 * time.Millisecond
)

// persistOTP retries while concurrent issues for the same user and type keep
// winning the partial unique index.
func (s *Usecase) persistOTP(ctx context.Context, userID int64, typ entity.VerificationType, ttl time.Duration) (entity.OtpCode, error) {
	var code entity.OtpCode
	backoff := retry.WithMaxRetries(issueMaxRetries, retry.WithJitterPercent(50, retry.NewExponential(issueBackoff)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		raw, err := s.coder.Code()
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate otp code", "user_id", userID, "error", err)
			return goerror.NewServer(err)
		}

		code, err = entity.NewOtpCode(s.uid.Generate(), userID, raw, typ, s.clock.Now(), ttl)
		if err != nil {
			slog.ErrorContext(ctx, "failed to build otp code", "user_id", userID, "error", err)
			return goerror.NewServer(err)
		}

		err = s.repoDB.IssueOTP(ctx, code)
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "concurrent otp issue, retrying", "user_id", userID, "type", typ)
			return retry.RetryableError(err)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo issue otp", "user_id", userID, "error", err)
			return goerror.NewServer(err)
		}
		return nil
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "otp issue kept conflicting", "user_id", userID, "type", typ)
		return entity.OtpCode{}, goerror.NewBusiness("Another code is being issued. Please try again.", goerror.CodeConflict)
	}
	if err != nil {
		return entity.OtpCode{}, err
	}
	return code, nil
}
