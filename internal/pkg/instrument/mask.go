package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const masked = "***"

// MaskKeys is a set of lower-cased field names whose values are hidden in logs.
type MaskKeys map[string]struct{}

func NewMaskKeys(fields []string) MaskKeys {
	keys := make(MaskKeys, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			keys[f] = struct{}{}
		}
	}
	return keys
}

func (k MaskKeys) Has(name string) bool {
	_, ok := k[strings.ToLower(name)]
	return ok
}

// Value walks decoded JSON (maps and slices) and masks matching keys.
func (k MaskKeys) Value(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			if k.Has(key) {
				out[key] = masked
				continue
			}
			out[key] = k.Value(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			out[key] = inner
		}
		return k.Value(out)
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = k.Value(inner)
		}
		return out
	default:
		return v
	}
}

// JSON masks a JSON document. ok is false when b is not JSON.
func (k MaskKeys) JSON(b []byte) (any, bool) {
	if len(b) == 0 {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, false
	}
	return k.Value(doc), true
}

func (k MaskKeys) Header(h http.Header) http.Header {
	if len(k) == 0 {
		return h
	}
	out := h.Clone()
	for name := range out {
		if k.Has(name) {
			out.Set(name, masked)
		}
	}
	return out
}

func (k MaskKeys) attr(a slog.Attr) slog.Attr {
	if k.Has(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = k.attr(ga)
		}
		a.Value = slog.GroupValue(out...)
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
			if doc, ok := k.JSON([]byte(s)); ok {
				if b, err := json.Marshal(doc); err == nil {
					a.Value = slog.StringValue(string(b))
				}
			}
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, map[string]string, []any:
			a.Value = slog.AnyValue(k.Value(v))
		case []byte:
			if doc, ok := k.JSON(v); ok {
				a.Value = slog.AnyValue(doc)
			}
		}
	}
	return a
}

type maskHandler struct {
	handler slog.Handler
	keys    MaskKeys
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.keys.attr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.keys.attr(a)
	}
	return &maskHandler{handler: h.handler.WithAttrs(out), keys: h.keys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name), keys: h.keys}
}
