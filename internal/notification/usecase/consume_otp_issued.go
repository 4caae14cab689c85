package usecase

import (
	"context"
	"log/slog"
	"strings"
)

const otpEmailSubject = "Email Verification"

type ConsumeOTPIssuedInput struct {
	EventID           string
	Email             string
	Name              string
	Code              string
	ExpirationMinutes int
}

// ConsumeOTPIssued renders the verification email for a freshly issued code.
func (s *Usecase) ConsumeOTPIssued(ctx context.Context, in ConsumeOTPIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPIssued")
	defer span.End()

	if strings.TrimSpace(in.Code) == "" {
		slog.ErrorContext(ctx, "otp issued event without code", "event_id", in.EventID)
		return ErrInvalidEmail
	}

	html, err := s.tpl.render(otpEmailTemplate, map[string]any{
		"otp_code":        in.Code,
		"expiration_time": in.ExpirationMinutes,
		"name":            in.Name,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "event_id", in.EventID, "error", err)
		return err
	}

	return s.SendEmail(ctx, SendEmailInput{
		EventID:    in.EventID,
		Subject:    otpEmailSubject,
		HTML:       html,
		Recipients: []string{in.Email},
	})
}
