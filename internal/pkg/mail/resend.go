package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go"
)

var ErrResendAPIKeyRequired = errors.New("mail: resend api key is required")

type ResendConfig struct {
	APIKey string
	From   string
}

type resendSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend sends through the Resend HTTP API.
type Resend struct {
	emails resendSender
	from   string
}

func NewResend(cfg ResendConfig) (*Resend, error) {
	if cfg.APIKey == "" {
		return nil, ErrResendAPIKeyRequired
	}

	client := resend.NewClient(cfg.APIKey)
	return &Resend{emails: client.Emails, from: cfg.From}, nil
}

func (r *Resend) Name() string { return DriverResend }

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.recipients()) == 0 {
		return ErrNoRecipients
	}

	from, err := msg.sender(r.from)
	if err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
	}

	if _, err := r.emails.Send(req); err != nil {
		return fmt.Errorf("mail: resend send: %w", err)
	}
	return nil
}

func (r *Resend) Close() error { return nil }
