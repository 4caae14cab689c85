package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishOTPIssued(ctx context.Context, msg usecase.OTPIssuedEvent) (err error) {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishOTPIssued")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(event.OTPIssuedMessage{
		ID:                msg.ID,
		UserID:            msg.UserID,
		Email:             msg.Email,
		Name:              msg.Name,
		Code:              msg.Code,
		VerificationType:  msg.Type.String(),
		ExpirationMinutes: msg.ExpirationMinutes,
	})
	if err != nil {
		return err
	}

	_, err = m.client.Publish(ctx, event.OTPIssuedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.ID),
		Headers: []messaging.Header{{Key: event.HeaderCorrelationID, Value: []byte(instrument.GetCorrelationID(ctx))}},
	})
	return err
}
