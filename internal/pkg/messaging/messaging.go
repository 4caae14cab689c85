package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrUnsupported     = errors.New("messaging: unsupported operation")
	ErrTopicRequired   = errors.New("messaging: topic is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
	ErrClosed          = errors.New("messaging: client is closed")
)

type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks in Consume until ctx is canceled or the subscription fails.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto ack enabled, a nil return acks
// and an error nacks so the broker may redeliver.
type Handler func(ctx context.Context, msg Message) error

type OutgoingMessage struct {
	Body    []byte
	Key     []byte
	Headers []Header
	// Delay requests deferred delivery. Only NSQ supports it.
	Delay time.Duration
}

type Header struct {
	Key   string
	Value []byte
}

type PublishResult struct {
	MessageID string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	// Header returns the first value for key, or "".
	Header(key string) string
	ID() string
	Topic() string
	Timestamp() time.Time
	// Attempts is the delivery count when the broker tracks it, else 1.
	Attempts() int

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}
