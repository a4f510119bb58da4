package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shandysiswandi/portalauth/internal/pkg/stacktrace"
)

// delivery is the Message handed to handlers by every driver. Drivers
// supply ack and nack; only the first response reaches the broker.
type delivery struct {
	body      []byte
	key       []byte
	headers   []Header
	id        string
	topic     string
	timestamp time.Time

	ack       func(ctx context.Context) error
	nack      func(ctx context.Context) error
	responded atomic.Bool
}

func (d *delivery) Body() []byte         { return d.body }
func (d *delivery) Key() []byte          { return d.key }
func (d *delivery) Headers() []Header    { return d.headers }
func (d *delivery) ID() string           { return d.id }
func (d *delivery) Topic() string        { return d.topic }
func (d *delivery) Timestamp() time.Time { return d.timestamp }

func (d *delivery) Ack(ctx context.Context) error {
	if !d.responded.CompareAndSwap(false, true) || d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

func (d *delivery) Nack(ctx context.Context) error {
	if !d.responded.CompareAndSwap(false, true) || d.nack == nil {
		return nil
	}
	return d.nack(ctx)
}

// dispatch runs handler with panic recovery and applies auto-ack. It
// returns the handler error, or the ack/nack error when that failed.
func dispatch(ctx context.Context, driver string, d *delivery, handler Handler, autoAck bool) error {
	herr := callHandler(ctx, driver, d, handler)
	if !autoAck || d.responded.Load() {
		return herr
	}

	if herr == nil {
		return d.Ack(ctx)
	}

	slog.WarnContext(ctx, "message handler failed, requeueing", "driver", driver, "topic", d.topic, "id", d.id, "error", herr)
	if err := d.Nack(ctx); err != nil {
		return err
	}
	return herr
}

func callHandler(ctx context.Context, driver string, d *delivery, handler Handler) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, d)
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
