// Package log provides a redacting slog handler so credentials, CSRF
// tokens, cookies and certificate key material never reach log output.
package log

import (
	"context"
	"log/slog"
	"strings"
)

// sensitiveKeys defines the list of keys whose values should be redacted.
// Keys are case-insensitive and matched as substrings.
var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"pass":        {},
	"secret":      {},
	"token":       {},
	"key":         {},
	"auth":        {},
	"ticket":      {},
	"cred":        {},
	"cookie":      {},
	"certificate": {},
	"csrf":        {},
}

// RedactingHandler is a slog.Handler that redacts sensitive attributes
// before passing records on.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler creates a new RedactingHandler.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, redactAttr(a))
		return true
	})

	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	newRecord.AddAttrs(attrs...)

	return h.next.Handle(ctx, newRecord)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redactedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redactedAttrs[i] = redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redactedAttrs)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redactedGroup := make([]interface{}, len(attrs))
		for i, attr := range attrs {
			redactedGroup[i] = redactAttr(attr)
		}
		return slog.Group(a.Key, redactedGroup...)
	}

	lowerKey := strings.ToLower(a.Key)
	for sens := range sensitiveKeys {
		if strings.Contains(lowerKey, sens) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}

	return a
}
