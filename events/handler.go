package events

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/rayhaanfarooq/squire/pkg/slogx"
)

// Handler consumes envelopes delivered for a subscribed topic. A returned
// error marks this one delivery as failed for this one handler; it is
// logged by the dispatch site and never reaches the publisher or stops a
// consumption loop.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// Deduper reports whether an envelope identifier was already observed,
// marking it observed as a side effect.
type Deduper interface {
	Seen(id string) bool
}

// Deduped wraps next so that envelopes whose identifier was already seen
// are dropped before next runs. Both delivery paths can fire for the same
// logical event in degraded transport mode; consumers that must process
// each event once wrap their handler here.
func Deduped(seen Deduper, next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, env Envelope) error {
		if seen.Seen(env.ID) {
			slog.DebugContext(ctx, "duplicate envelope suppressed",
				slog.String("id", env.ID),
				slog.String("topic", env.Topic),
			)
			return nil
		}
		return next.Handle(ctx, env)
	})
}

// Dispatch invokes the handler on its own goroutine and returns
// immediately. Errors and panics are logged and contained, so one handler
// can never block or break another, the publisher, or a consumption loop.
func Dispatch(ctx context.Context, h Handler, env Envelope) {
	go invoke(ctx, h, env)
}

func invoke(ctx context.Context, h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "handler panicked",
				slog.String("topic", env.Topic),
				slog.String("id", env.ID),
				slog.Any("panic", r),
				slogx.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := h.Handle(ctx, env); err != nil {
		slog.ErrorContext(ctx, "handler failed",
			slog.String("topic", env.Topic),
			slog.String("id", env.ID),
			slogx.Error(err),
		)
	}
}
