package mail

import (
	"context"
	"log/slog"
)

type LogConfig struct {
	From string
	// IncludeBody logs the html and text bodies. Development only.
	IncludeBody bool
}

// Log writes messages to slog instead of delivering them.
type Log struct {
	cfg LogConfig
}

func NewLog(cfg LogConfig) *Log { return &Log{cfg: cfg} }

func (l *Log) Name() string { return DriverLog }

func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.recipients()) == 0 {
		return ErrNoRecipients
	}

	from, err := msg.sender(l.cfg.From)
	if err != nil {
		return err
	}

	attrs := []any{"from", from, "to", msg.To, "subject", msg.Subject}
	if l.cfg.IncludeBody {
		attrs = append(attrs, "html", msg.HTMLBody, "text", msg.TextBody)
	}
	slog.InfoContext(ctx, "mail sent to log", attrs...)
	return nil
}

func (l *Log) Close() error { return nil }
