package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gootp/internal/notification/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
)

// ErrInvalidEmail marks a payload no retry can fix.
var ErrInvalidEmail = goerror.NewInvalidFormat("Subject, html_message, and emails are required")

type SendEmailInput struct {
	// EventID is the idempotency key.
	EventID    string
	Subject    string
	HTML       string
	Recipients []string
}

func normalizeRecipients(in []string) []string {
	trimmed := lo.Map(in, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(trimmed))
}

// SendEmail sends once per event. A failure is returned so the broker
// redelivers; an invalid payload returns ErrInvalidEmail.
func (s *Usecase) SendEmail(ctx context.Context, in SendEmailInput) error {
	ctx, span := s.startSpan(ctx, "SendEmail")
	defer span.End()

	in.Subject = strings.TrimSpace(in.Subject)
	in.Recipients = normalizeRecipients(in.Recipients)
	if in.Subject == "" || strings.TrimSpace(in.HTML) == "" || len(in.Recipients) == 0 {
		slog.ErrorContext(ctx, "invalid email payload", "event_id", in.EventID, "recipients", len(in.Recipients))
		return ErrInvalidEmail
	}

	err := s.idemp.Exec(ctx, "notification:email:"+in.EventID, func(ctx context.Context) error {
		return s.deliver(ctx, in)
	})
	if errors.Is(err, idempotency.ErrAlreadyCompleted) {
		slog.InfoContext(ctx, "email already sent for event", "event_id", in.EventID)
		return nil
	}
	return err
}

func (s *Usecase) retryPolicy() retry.Backoff {
	n := s.cfg.GetUint64("modules.notification.mail.max_retries")
	if n == 0 {
		n = defaultMaxRetries
	}
	base := time.Duration(s.cfg.GetInt("modules.notification.mail.backoff_ms")) * time.Millisecond
	if base <= 0 {
		base = defaultRetryBackoff
	}
	return retry.WithMaxRetries(n, retry.WithJitterPercent(10, retry.NewExponential(base)))
}

// deliver records the attempt and retries the provider with backoff.
func (s *Usecase) deliver(ctx context.Context, in SendEmailInput) error {
	d := entity.NewEmailDelivery(s.uid.Generate(), in.EventID, in.Subject, in.Recipients, s.repoMail.Provider(), s.clock.Now())
	if err := s.repoDB.CreateDelivery(ctx, d); err != nil {
		slog.ErrorContext(ctx, "failed to repo create email delivery", "event_id", in.EventID, "error", err)
		return err
	}

	msg := mail.Message{To: in.Recipients, Subject: in.Subject, HTMLBody: in.HTML}

	attempts := 0
	sendErr := retry.Do(ctx, s.retryPolicy(), func(ctx context.Context) error {
		attempts++
		if err := s.repoMail.Send(ctx, msg); err != nil {
			slog.WarnContext(ctx, "email send attempt failed", "event_id", in.EventID, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})

	status, errMsg := entity.DeliverySent, ""
	if sendErr != nil {
		status, errMsg = entity.DeliveryFailed, sendErr.Error()
	}

	meta := valueobject.JSONMap{"attempts": attempts}
	if err := s.repoDB.UpdateDeliveryStatus(context.WithoutCancel(ctx), d.ID, status, errMsg, meta, s.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to repo update email delivery", "delivery_id", d.ID, "status", status, "error", err)
	}

	if sendErr != nil {
		slog.ErrorContext(ctx, "failed to send email", "event_id", in.EventID, "attempts", attempts, "error", sendErr)
		return sendErr
	}

	slog.InfoContext(ctx, "email sent", "event_id", in.EventID, "recipients", len(in.Recipients), "provider", d.Provider)
	return nil
}
