package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startConsumer(t *testing.T, m *Memory, topic string, h Handler, opts ...ConsumeOption) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() {
		err := m.Consume(ctx, topic, h, opts...)
		assert.ErrorIs(t, err, context.Canceled)
	})

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.queues[topic]) > 0
	}, time.Second, 5*time.Millisecond)

	return func() {
		cancel()
		wg.Wait()
	}
}

func TestMemory_PublishConsume(t *testing.T) {
	t.Parallel()

	m := NewMemory(MemoryConfig{})
	t.Cleanup(func() { _ = m.Close() })

	got := make(chan Message, 1)
	stop := startConsumer(t, m, "identity.otp_issued", func(_ context.Context, msg Message) error {
		got <- msg
		return nil
	}, WithGroup("notification"), WithAutoAck(true))
	defer stop()

	err := m.Publish(context.Background(), "identity.otp_issued", OutgoingMessage{
		Body:    []byte(`{"email":"a@b.co"}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-1")}},
	})
	require.NoError(t, err)

	select {
	case msg := <-got:
		assert.JSONEq(t, `{"email":"a@b.co"}`, string(msg.Body()))
		assert.Equal(t, "cid-1", HeaderValue(msg, "cID"))
		assert.Equal(t, "identity.otp_issued", msg.Topic())
		assert.NotEmpty(t, msg.ID())
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemory_NackRedeliversUntilMaxAttempts(t *testing.T) {
	t.Parallel()

	m := NewMemory(MemoryConfig{MaxAttempts: 3})
	t.Cleanup(func() { _ = m.Close() })

	var calls atomic.Int32
	stop := startConsumer(t, m, "t", func(context.Context, Message) error {
		calls.Add(1)
		return errors.New("fail")
	}, WithGroup("g"), WithAutoAck(true))
	defer stop()

	require.NoError(t, m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")}))

	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMemory_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	m := NewMemory(MemoryConfig{MaxAttempts: 1})
	t.Cleanup(func() { _ = m.Close() })

	var calls atomic.Int32
	stop := startConsumer(t, m, "t", func(_ context.Context, msg Message) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}, WithGroup("g"), WithAutoAck(true))
	defer stop()

	require.NoError(t, m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("1")}))
	require.NoError(t, m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("2")}))

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestMemory_Validation(t *testing.T) {
	t.Parallel()

	m := NewMemory(MemoryConfig{})
	ctx := context.Background()

	require.ErrorIs(t, m.Publish(ctx, "", OutgoingMessage{}), ErrTopicRequired)
	require.ErrorIs(t, m.Consume(ctx, "", func(context.Context, Message) error { return nil }), ErrTopicRequired)
	require.ErrorIs(t, m.Consume(ctx, "t", nil), ErrHandlerRequired)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.Error(t, m.Publish(ctx, "t", OutgoingMessage{}))
}

func TestDelivery_RespondsOnce(t *testing.T) {
	t.Parallel()

	var acks, nacks int
	d := &delivery{
		ack:  func(context.Context) error { acks++; return nil },
		nack: func(context.Context) error { nacks++; return nil },
	}

	require.NoError(t, d.Ack(context.Background()))
	require.NoError(t, d.Nack(context.Background()))
	require.NoError(t, d.Ack(context.Background()))
	assert.Equal(t, 1, acks)
	assert.Zero(t, nacks)
}

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	m, err := NewFromDriver(context.Background(), DriverMemory, FactoryOptions{})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, err = NewFromDriver(context.Background(), "rabbit", FactoryOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(context.Background(), DriverKafka, FactoryOptions{})
	require.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(context.Background(), DriverNATS, FactoryOptions{})
	require.ErrorIs(t, err, ErrNATSURLRequired)
}
