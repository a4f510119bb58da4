package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/portalauth/internal/notification/usecase"
	"github.com/shandysiswandi/portalauth/internal/pkg/instrument"
	"github.com/shandysiswandi/portalauth/internal/pkg/messaging"
	"github.com/shandysiswandi/portalauth/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUC struct {
	got []usecase.ConsumeOTPIssuedInput
	cID string
	err error
}

func (s *stubUC) ConsumeOTPIssued(ctx context.Context, in usecase.ConsumeOTPIssuedInput) error {
	s.got = append(s.got, in)
	s.cID = instrument.GetCorrelationID(ctx)
	return s.err
}

type staticID string

func (s staticID) Generate() string { return string(s) }

type stubMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m stubMessage) Body() []byte                { return m.body }
func (m stubMessage) Key() []byte                 { return nil }
func (m stubMessage) Headers() []messaging.Header { return m.headers }
func (m stubMessage) ID() string                  { return "msg-1" }
func (m stubMessage) Topic() string               { return event.OTPIssuedDestination }
func (m stubMessage) Timestamp() time.Time        { return time.Time{} }
func (m stubMessage) Ack(context.Context) error   { return nil }
func (m stubMessage) Nack(context.Context) error  { return nil }

func otpMessage(t *testing.T, headers ...messaging.Header) stubMessage {
	t.Helper()

	body, err := json.Marshal(event.OTPIssuedMessage{
		Email: "asha@narayanagroup.com", Name: "Asha", Code: "123456", Purpose: "signup", TTLMinutes: 5,
	})
	require.NoError(t, err)
	return stubMessage{body: body, headers: headers}
}

func TestMQHandler_OTPIssuedNotification(t *testing.T) {
	t.Parallel()

	t.Run("forwards the event with the publisher correlation id", func(t *testing.T) {
		t.Parallel()

		uc := &stubUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		msg := otpMessage(t, messaging.Header{Key: keyOfCorrelationID, Value: []byte("cid-9")})
		require.NoError(t, h.OTPIssuedNotification(context.Background(), msg))

		require.Len(t, uc.got, 1)
		assert.Equal(t, usecase.ConsumeOTPIssuedInput{
			Email: "asha@narayanagroup.com", Name: "Asha", Code: "123456", Purpose: "signup", TTLMinutes: 5,
		}, uc.got[0])
		assert.Equal(t, "cid-9", uc.cID)
	})

	t.Run("generates a correlation id when missing", func(t *testing.T) {
		t.Parallel()

		uc := &stubUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPIssuedNotification(context.Background(), otpMessage(t)))
		assert.Equal(t, "generated", uc.cID)
	})

	t.Run("malformed body is acked", func(t *testing.T) {
		t.Parallel()

		uc := &stubUC{}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		require.NoError(t, h.OTPIssuedNotification(context.Background(), stubMessage{body: []byte("{")}))
		assert.Empty(t, uc.got)
	})

	t.Run("usecase error nacks", func(t *testing.T) {
		t.Parallel()

		uc := &stubUC{err: errors.New("boom")}
		h := &MQHandler{uc: uc, uuid: staticID("generated"), ins: instrument.NewNoop()}

		assert.Error(t, h.OTPIssuedNotification(context.Background(), otpMessage(t)))
	})
}
