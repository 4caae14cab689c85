package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/gootp/internal/pkg/stacktrace"
)

// dispatch runs handler on msg, recovering panics, and applies auto ack.
// A failed ack is returned.
func dispatch(ctx context.Context, kind string, msg *message, handler Handler, autoAck bool) error {
	herr := callHandler(ctx, kind, msg, handler)

	if !autoAck || msg.hasResponded() {
		return nil
	}
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed, requesting redelivery",
			"driver", kind, "topic", msg.topic, "attempts", msg.Attempts(), "error", herr)
		return msg.Nack(ctx)
	}
	return msg.Ack(ctx)
}

func callHandler(ctx context.Context, kind string, msg *message, handler Handler) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in messaging handler",
				"driver", kind, "topic", msg.topic, "panic", rvr, "stack", stacktrace.Internal(2))
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return handler(ctx, msg)
}

// pool starts n workers draining in. Closing in stops them; the returned
// WaitGroup tracks them.
func pool(ctx context.Context, kind string, n int, in <-chan *message, handler Handler, autoAck bool) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for msg := range in {
				if err := dispatch(ctx, kind, msg, handler, autoAck); err != nil {
					slog.ErrorContext(ctx, "failed to respond to message", "driver", kind, "topic", msg.topic, "error", err)
				}
			}
		})
	}
	return &wg
}

func validateConsume(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
