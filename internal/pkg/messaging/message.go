package messaging

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// message is shared by every driver. Only the first Ack or Nack reaches the
// broker.
type message struct {
	id         string
	topic      string
	body       []byte
	key        []byte
	headers    []Header
	receivedAt time.Time
	attempts   int

	ack  func(ctx context.Context) error
	nack func(ctx context.Context) error

	responded atomic.Bool
}

func (m *message) Body() []byte         { return m.body }
func (m *message) Key() []byte          { return m.key }
func (m *message) Headers() []Header    { return m.headers }
func (m *message) ID() string           { return m.id }
func (m *message) Topic() string        { return m.topic }
func (m *message) Timestamp() time.Time { return m.receivedAt }

func (m *message) Attempts() int {
	if m.attempts < 1 {
		return 1
	}
	return m.attempts
}

func (m *message) Header(key string) string {
	for _, h := range m.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (m *message) Ack(ctx context.Context) error {
	return m.respond(ctx, m.ack)
}

func (m *message) Nack(ctx context.Context) error {
	return m.respond(ctx, m.nack)
}

func (m *message) respond(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.responded.Swap(true) || fn == nil {
		return nil
	}
	return fn(ctx)
}

func (m *message) hasResponded() bool { return m.responded.Load() }
