package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/portalauth/internal/identity/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/messaging"
	"github.com/shandysiswandi/portalauth/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishOTPIssued(ctx context.Context, msg usecase.OTPIssuedEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishOTPIssued")
	defer span.End()

	return m.publish(ctx, span, event.OTPIssuedDestination, event.OTPIssuedMessage{
		Email:      msg.Email,
		Name:       msg.Name,
		Code:       msg.Code,
		Purpose:    msg.Purpose.String(),
		TTLMinutes: msg.TTLMinutes,
	})
}

func (m *Messaging) PublishUserLoggedIn(ctx context.Context, msg usecase.UserLoggedInEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishUserLoggedIn")
	defer span.End()

	return m.publish(ctx, span, event.UserLoggedInDestination, event.UserLoggedInMessage{
		UserID: msg.UserID,
		Email:  msg.Email,
		Method: string(msg.Method),
		IP:     msg.IP,
		Device: msg.Device,
		At:     msg.At,
	})
}

func (m *Messaging) publish(ctx context.Context, span trace.Span, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if err := m.client.Publish(ctx, topic, messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
