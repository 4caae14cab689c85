package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Memory delivers messages in-process. It suits single-node deployments and
// tests. Nacked messages are redelivered after RedeliveryDelay, up to
// MaxAttempts deliveries in total. A delayed message waits up to
// EnqueueTimeout for room in a full topic before it is dropped.
type Memory struct {
	mu     sync.Mutex
	topics map[string]chan *memEnvelope
	closed bool
	seq    uint64

	buffer          int
	redeliveryDelay time.Duration
	maxAttempts     int
	enqueueTimeout  time.Duration
}

type MemoryConfig struct {
	Buffer          int
	RedeliveryDelay time.Duration
	MaxAttempts     int
	EnqueueTimeout  time.Duration
}

type memEnvelope struct {
	id       string
	msg      OutgoingMessage
	at       time.Time
	attempts int
}

func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RedeliveryDelay <= 0 {
		cfg.RedeliveryDelay = time.Second
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 5 * time.Second
	}

	return &Memory{
		topics:          map[string]chan *memEnvelope{},
		buffer:          cfg.Buffer,
		redeliveryDelay: cfg.RedeliveryDelay,
		maxAttempts:     cfg.MaxAttempts,
		enqueueTimeout:  cfg.EnqueueTimeout,
	}
}

func (m *Memory) topic(name string) (chan *memEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	ch, ok := m.topics[name]
	if !ok {
		ch = make(chan *memEnvelope, m.buffer)
		m.topics[name] = ch
	}
	return ch, nil
}

func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}

	ch, err := m.topic(topic)
	if err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	m.seq++
	env := &memEnvelope{id: strconv.FormatUint(m.seq, 10), msg: msg, at: time.Now()}
	m.mu.Unlock()

	if msg.Delay > 0 {
		m.later(ch, topic, env, msg.Delay)
	} else {
		select {
		case ch <- env:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	return PublishResult{MessageID: env.id, Topic: topic, Timestamp: env.at}, nil
}

func (m *Memory) later(ch chan *memEnvelope, topic string, env *memEnvelope, d time.Duration) {
	time.AfterFunc(d, func() {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}

		timer := time.NewTimer(m.enqueueTimeout)
		defer timer.Stop()

		select {
		case ch <- env:
		case <-timer.C:
			slog.Warn("memory messaging dropped delayed message, topic is full",
				"message_id", env.id, "topic", topic, "attempts", env.attempts)
		}
	})
}

func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	ch, err := m.topic(topic)
	if err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	work := make(chan *message)
	wg := pool(ctx, "memory", co.concurrency, work, handler, co.autoAck)
	defer func() {
		close(work)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-ch:
			env.attempts++
			select {
			case work <- m.wrap(ch, topic, env):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Memory) wrap(ch chan *memEnvelope, topic string, env *memEnvelope) *message {
	return &message{
		id:         env.id,
		topic:      topic,
		body:       env.msg.Body,
		key:        env.msg.Key,
		headers:    env.msg.Headers,
		receivedAt: env.at,
		attempts:   env.attempts,
		nack: func(context.Context) error {
			if env.attempts < m.maxAttempts {
				m.later(ch, topic, env, m.redeliveryDelay)
			}
			return nil
		},
	}
}

// Close stops accepting publishes. Queued and delayed messages are dropped.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
