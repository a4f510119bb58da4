package messaging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryConfig configures the in-process broker.
type MemoryConfig struct {
	// Buffer is the per-group queue size. Defaults to 256.
	Buffer int
	// MaxAttempts bounds redeliveries after Nack. Defaults to 3.
	MaxAttempts int
}

// Memory is an in-process broker. Messages published to a topic before any
// group consumes it are dropped, as with core NATS.
type Memory struct {
	buffer      int
	maxAttempts int

	mu     sync.Mutex
	queues map[string]map[string]chan *memoryMessage
	done   chan struct{}
	closed bool
	seq    atomic.Uint64
}

type memoryMessage struct {
	msg      OutgoingMessage
	id       string
	at       time.Time
	attempts int
}

// NewMemory returns an in-process broker.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Memory{
		buffer:      cfg.Buffer,
		maxAttempts: cfg.MaxAttempts,
		queues:      map[string]map[string]chan *memoryMessage{},
		done:        make(chan struct{}),
	}
}

// Close stops every consumer. Queued messages are discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	targets := make([]chan *memoryMessage, 0, len(m.queues[topic]))
	for _, q := range m.queues[topic] {
		targets = append(targets, q)
	}
	m.mu.Unlock()

	now := time.Now()
	for _, q := range targets {
		mm := &memoryMessage{msg: msg, id: strconv.FormatUint(m.seq.Add(1), 10), at: now}
		select {
		case q <- mm:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return io.ErrClosedPipe
		}
	}

	return nil
}

func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	q, err := m.queue(topic, co.group)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case mm := <-q:
					_ = dispatch(ctx, DriverMemory, m.delivery(topic, q, mm), handler, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) queue(topic, group string) (chan *memoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}

	groups, ok := m.queues[topic]
	if !ok {
		groups = map[string]chan *memoryMessage{}
		m.queues[topic] = groups
	}

	q, ok := groups[group]
	if !ok {
		q = make(chan *memoryMessage, m.buffer)
		groups[group] = q
	}
	return q, nil
}

func (m *Memory) delivery(topic string, q chan *memoryMessage, mm *memoryMessage) *delivery {
	return &delivery{
		body:      mm.msg.Body,
		key:       mm.msg.Key,
		headers:   mm.msg.Headers,
		id:        mm.id,
		topic:     topic,
		timestamp: mm.at,
		nack: func(ctx context.Context) error {
			mm.attempts++
			if mm.attempts >= m.maxAttempts {
				slog.WarnContext(ctx, "dropping message after max attempts", "topic", topic, "id", mm.id, "attempts", mm.attempts)
				return nil
			}
			select {
			case q <- mm:
			default:
				slog.WarnContext(ctx, "dropping message, queue full on requeue", "topic", topic, "id", mm.id)
			}
			return nil
		},
	}
}
