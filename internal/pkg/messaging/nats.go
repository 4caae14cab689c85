package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

const flushTimeout = 5 * time.Second

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS uses core NATS queue subscriptions. Core NATS has no redelivery, so
// a nacked message is only logged.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	nmsg := nats.NewMsg(topic)
	nmsg.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key != "" {
			nmsg.Header.Add(h.Key, string(h.Value))
		}
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: time.Now()}, nil
}

func (n *NATS) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	work := make(chan *message, co.concurrency)
	wg := pool(ctx, "nats", co.concurrency, work, handler, co.autoAck)

	sub, err := n.conn.QueueSubscribe(topic, co.queueGroup, func(m *nats.Msg) {
		select {
		case work <- wrapNATS(m):
		case <-ctx.Done():
		}
	})
	if err != nil {
		close(work)
		wg.Wait()
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	if err := n.track(sub); err != nil {
		return errors.Join(err, n.drain(sub, work, wg))
	}

	<-ctx.Done()
	return errors.Join(ctx.Err(), n.drain(sub, work, wg))
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.subs = append(n.subs, sub)
	return nil
}

func (n *NATS) drain(sub *nats.Subscription, work chan *message, wg *sync.WaitGroup) error {
	err := sub.Drain()
	for sub.IsValid() {
		time.Sleep(10 * time.Millisecond)
	}
	close(work)
	wg.Wait()
	return err
}

func wrapNATS(m *nats.Msg) *message {
	var headers []Header
	for k, values := range m.Header {
		for _, v := range values {
			headers = append(headers, Header{Key: k, Value: []byte(v)})
		}
	}

	return &message{
		topic:      m.Subject,
		body:       m.Data,
		headers:    headers,
		receivedAt: time.Now(),
		ack:        func(context.Context) error { return ignoreNoReply(m.Ack()) },
		nack:       func(context.Context) error { return ignoreNoReply(m.Nak()) },
	}
}

func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}

func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.conn.Drain()
	n.conn.Close()
	return err
}
