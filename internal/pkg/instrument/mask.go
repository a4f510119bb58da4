package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

const maskedValue = "***"

// maskHandler hides secrets (passwords, codes, tokens) in attributes and in
// JSON payloads logged as strings or bytes.
type maskHandler struct {
	slog.Handler
	keys map[string]struct{}
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.keys) == 0 {
		return h.Handler.Handle(ctx, r)
	}

	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.attr(a))
		return true
	})

	return h.Handler.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &maskHandler{
		Handler: h.Handler.WithAttrs(lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.attr(a) })),
		keys:    h.keys,
	}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{Handler: h.Handler.WithGroup(name), keys: h.keys}
}

func buildMaskKeys(fields []string) map[string]struct{} {
	keys := lo.Compact(lo.Map(fields, func(f string, _ int) string {
		return strings.ToLower(strings.TrimSpace(f))
	}))
	return lo.SliceToMap(keys, func(k string) (string, struct{}) { return k, struct{}{} })
}

func (h *maskHandler) secret(key string) bool {
	_, ok := h.keys[strings.ToLower(key)]
	return ok
}

func (h *maskHandler) attr(a slog.Attr) slog.Attr {
	if h.secret(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(ga slog.Attr, _ int) slog.Attr { return h.attr(ga) })...)
	case slog.KindString:
		if out, ok := h.json([]byte(a.Value.String())); ok {
			a.Value = slog.StringValue(out)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(h.data(v))
		case map[string]string:
			a.Value = slog.AnyValue(h.data(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []byte:
			if out, ok := h.json(v); ok {
				a.Value = slog.StringValue(out)
			}
		}
	}

	return a
}

func (h *maskHandler) json(payload []byte) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}

	out, err := json.Marshal(h.data(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (h *maskHandler) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if h.secret(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = h.data(v2)
		}
		return out
	case []any:
		return lo.Map(val, func(v2 any, _ int) any { return h.data(v2) })
	default:
		return v
	}
}
