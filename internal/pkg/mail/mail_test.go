package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/resend/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIME(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("html only", func(t *testing.T) {
		raw, err := buildMIME("noreply@gootp.dev", Message{
			To:       []string{"a@example.com"},
			Bcc:      []string{"audit@example.com"},
			Subject:  "Email Verification",
			HTMLBody: "<p>123456</p>",
		}, now)
		require.NoError(t, err)

		s := string(raw)
		assert.Contains(t, s, "From: noreply@gootp.dev\r\n")
		assert.Contains(t, s, "To: a@example.com\r\n")
		assert.Contains(t, s, "Content-Type: text/html; charset=UTF-8\r\n")
		assert.NotContains(t, s, "audit@example.com")
		assert.True(t, strings.HasSuffix(s, "\r\n\r\n<p>123456</p>"))
	})

	t.Run("html and text", func(t *testing.T) {
		raw, err := buildMIME("noreply@gootp.dev", Message{
			To:       []string{"a@example.com"},
			Subject:  "Vérification",
			TextBody: "code 123456",
			HTMLBody: "<p>123456</p>",
		}, now)
		require.NoError(t, err)

		s := string(raw)
		assert.Contains(t, s, "multipart/alternative; boundary=")
		assert.Contains(t, s, "code 123456")
		assert.Contains(t, s, "<p>123456</p>")
		assert.Contains(t, s, "Subject: =?utf-8?q?")
	})
}

func TestSMTPSend(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@gootp.dev"})
	require.NoError(t, err)

	var gotFrom string
	var gotTo []string
	s.send = func(addr string, _ smtp.Auth, from string, to []string, _ []byte) error {
		assert.Equal(t, "localhost:1025", addr)
		gotFrom, gotTo = from, to
		return nil
	}

	err = s.Send(context.Background(), Message{To: []string{"a@example.com"}, Bcc: []string{"b@example.com"}, HTMLBody: "x"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@gootp.dev", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)

	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipients)

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421") }
	assert.Error(t, s.Send(context.Background(), Message{To: []string{"a@example.com"}}))

	_, err = NewSMTP(SMTPConfig{})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)
}

type fakeResend struct {
	req *resend.SendEmailRequest
	err error
}

func (f *fakeResend) Send(req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.req = req
	return &resend.SendEmailResponse{}, f.err
}

func TestResendSend(t *testing.T) {
	fake := &fakeResend{}
	r := &Resend{emails: fake, from: "noreply@gootp.dev"}

	err := r.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", HTMLBody: "<b>h</b>"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@gootp.dev", fake.req.From)
	assert.Equal(t, []string{"a@example.com"}, fake.req.To)
	assert.Equal(t, "<b>h</b>", fake.req.Html)

	fake.err = errors.New("rate limited")
	assert.Error(t, r.Send(context.Background(), Message{To: []string{"a@example.com"}}))

	_, err = NewResend(ResendConfig{})
	assert.ErrorIs(t, err, ErrResendAPIKeyRequired)
}

func TestNewFromDriver(t *testing.T) {
	m, err := NewFromDriver("", FactoryOptions{Log: LogConfig{From: "x@y.z"}})
	require.NoError(t, err)
	assert.Equal(t, DriverLog, m.Name())
	assert.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}))

	_, err = NewFromDriver("carrier-pigeon", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
