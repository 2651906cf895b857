// Package log is a common spot for steamos-atomupd logging helpers.
package log

import (
	"context"
	"log/slog"
	"slices"
)

// ctxkey is a Context key type.
//
// This is unexported so that other packages cannot construct these values.
type ctxkey int

const (
	_ ctxkey = iota

	// attrsKey is used with [context.Context.Value] to retrieve extra
	// logging attributes accumulated by [With].
	//
	// The value is a [slog.Value] of kind "Group" if present.
	attrsKey

	// levelKey is used with [context.Context.Value] to retrieve a
	// per-record minimum [slog.Level] set by [WithLevel].
	levelKey
)

// With returns a context with the arguments stored as [slog.Attr] at an
// internal key. Subsequent calls accumulate: attrs from an outer context
// are kept unless a later key shadows them.
func With(ctx context.Context, args ...any) context.Context {
	return WithAttr(ctx, argsToAttrSlice(args)...)
}

// WithAttr is like [With] but takes [slog.Attr] values directly.
func WithAttr(ctx context.Context, attrs ...slog.Attr) context.Context {
	if v, ok := ctx.Value(attrsKey).(slog.Value); ok {
		attrs = append(v.Group(), attrs...)
	}
	seen := make(map[string]struct{}, len(attrs))
	del := func(a slog.Attr) bool {
		_, rm := seen[a.Key]
		seen[a.Key] = struct{}{}
		return rm || (a.Value.Kind() == slog.KindGroup && len(a.Value.Group()) == 0)
	}
	slices.Reverse(attrs)
	attrs = slices.DeleteFunc(attrs, del)
	slices.Reverse(attrs)

	return context.WithValue(ctx, attrsKey, slog.GroupValue(attrs...))
}

// WithLevel returns a context carrying a per-record minimum [slog.Leveler],
// for raising verbosity on a single request without touching the global
// handler configuration.
func WithLevel(ctx context.Context, l slog.Leveler) context.Context {
	return context.WithValue(ctx, levelKey, l)
}

// the following is adapted from the unexported helpers in [log/slog] that
// turn a Logger's variadic args into Attrs.

func argsToAttrSlice(args []any) []slog.Attr {
	var (
		attr  slog.Attr
		attrs []slog.Attr
	)
	for len(args) > 0 {
		attr, args = argsToAttr(args)
		attrs = append(attrs, attr)
	}
	return attrs
}

func argsToAttr(args []any) (slog.Attr, []any) {
	const badKey = `!BADKEY`
	switch x := args[0].(type) {
	case string:
		if len(args) == 1 {
			return slog.String(badKey, x), nil
		}
		return slog.Any(x, args[1]), args[2:]
	case slog.Attr:
		return x, args[1:]
	default:
		return slog.Any(badKey, x), args[1:]
	}
}
