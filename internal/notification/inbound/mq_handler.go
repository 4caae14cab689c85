package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gootp/internal/notification/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) withCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(event.HeaderCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// settle turns a usecase result into an ack or a nack. A payload no retry can
// fix is acked and dropped.
func settle(ctx context.Context, msg messaging.Message, err error) error {
	if errors.Is(err, usecase.ErrInvalidEmail) {
		slog.WarnContext(ctx, "dropping invalid message", "msg_id", msg.ID(), "topic", msg.Topic())
		return nil
	}
	return err
}

func (h *MQHandler) OTPIssued(ctx context.Context, msg messaging.Message) error {
	ctx = h.withCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPIssued")
	defer span.End()

	slog.InfoContext(ctx, "consume: otp issued", "msg_id", msg.ID(), "attempts", msg.Attempts())

	var payload event.OTPIssuedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp issued", "msg_id", msg.ID(), "error", err)
		return nil
	}

	eventID := payload.ID
	if eventID == "" {
		eventID = msg.ID()
	}

	err := h.uc.ConsumeOTPIssued(ctx, usecase.ConsumeOTPIssuedInput{
		EventID:           eventID,
		Email:             payload.Email,
		Name:              payload.Name,
		Code:              payload.Code,
		ExpirationMinutes: payload.ExpirationMinutes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume otp issued", "event_id", eventID, "error", err)
	}

	return settle(ctx, msg, err)
}

func (h *MQHandler) EmailSend(ctx context.Context, msg messaging.Message) error {
	ctx = h.withCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "EmailSend")
	defer span.End()

	slog.InfoContext(ctx, "consume: email send", "msg_id", msg.ID(), "attempts", msg.Attempts())

	var payload event.EmailSendMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of email send", "msg_id", msg.ID(), "error", err)
		return nil
	}

	eventID := payload.ID
	if eventID == "" {
		eventID = msg.ID()
	}

	err := h.uc.SendEmail(ctx, usecase.SendEmailInput{
		EventID:    eventID,
		Subject:    payload.Subject,
		HTML:       payload.HTML,
		Recipients: payload.Recipients,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume email send", "event_id", eventID, "error", err)
	}

	return settle(ctx, msg, err)
}
