package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNoRecipients  = errors.New("mail: no recipients provided")
	ErrNoSender      = errors.New("mail: no sender provided")
	ErrUnknownDriver = errors.New("mail: unknown driver")
)

type Message struct {
	// From overrides the driver's default sender.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m Message) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

func (m Message) sender(fallback string) (string, error) {
	from := strings.TrimSpace(m.From)
	if from == "" {
		from = strings.TrimSpace(fallback)
	}
	if from == "" {
		return "", ErrNoSender
	}
	return from, nil
}

type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
	// Name identifies the provider in delivery logs.
	Name() string
}

const (
	DriverSMTP   = "smtp"
	DriverResend = "resend"
	DriverLog    = "log"
)

type FactoryOptions struct {
	SMTP   SMTPConfig
	Resend ResendConfig
	Log    LogConfig
}

func NewFromDriver(driver string, opts FactoryOptions) (Mail, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSMTP:
		return NewSMTP(opts.SMTP)
	case DriverResend:
		return NewResend(opts.Resend)
	case DriverLog, "":
		return NewLog(opts.Log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
