package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/gootp/internal/notification/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/shared/event"
)

type uc interface {
	SendEmail(ctx context.Context, in usecase.SendEmailInput) error
	ConsumeOTPIssued(ctx context.Context, in usecase.ConsumeOTPIssuedInput) error
}

const defaultConsumerConcurrency = 10

type consumer struct {
	name    string
	topic   string
	handler messaging.Handler
}

func consumers(h *MQHandler) []consumer {
	return []consumer{
		{
			name:    event.OTPIssuedConsumerNotification,
			topic:   event.OTPIssuedDestination,
			handler: h.OTPIssued,
		},
		{
			name:    event.EmailSendConsumerNotification,
			topic:   event.EmailSendDestination,
			handler: h.EmailSend,
		},
	}
}

// RegisterMQConsumer starts one job per consumer listed in
// modules.notification.consumer_names. The consumer name doubles as the
// NSQ channel, NATS queue group and Kafka group.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	sub messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = defaultConsumerConcurrency
	}

	started := 0
	for _, c := range consumers(h) {
		if !slices.Contains(enabled, c.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "running job for handling consumer", "consumer", c.name, "topic", c.topic)
			return sub.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.name),
				messaging.WithQueueGroup(c.name),
				messaging.WithGroup(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if ok {
			started++
		}
	}

	return started
}
