package log

import (
	"context"
	"log/slog"
)

// WrapHandler wraps next with an interceptor that pulls the [slog.Attr]
// values accumulated via [With]/[WithAttr] and the level set via
// [WithLevel] out of the record's Context. Every handler installed by
// internal/telemetry is wrapped this way, so any component may call
// log.With(ctx, ...) without holding a reference to a *slog.Logger.
func WrapHandler(next slog.Handler) slog.Handler {
	return handler{next: next}
}

var _ slog.Handler = handler{}

type handler struct {
	next slog.Handler
}

// Enabled implements [slog.Handler].
func (h handler) Enabled(ctx context.Context, l slog.Level) bool {
	rec := slog.Level(1<<31 - 1)
	if lv, ok := ctx.Value(levelKey).(slog.Leveler); ok {
		rec = lv.Level()
	}
	return l >= rec || h.next.Enabled(ctx, l)
}

// Handle implements [slog.Handler].
func (h handler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(attrsKey).(slog.Value); ok {
		r.AddAttrs(v.Group()...)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h handler) WithGroup(name string) slog.Handler {
	return handler{next: h.next.WithGroup(name)}
}
