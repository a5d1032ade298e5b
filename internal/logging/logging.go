// Package logging wraps log/slog the way rcornwell/S370's util/logger
// wraps it: a small custom Handler that timestamps each line and writes to
// an explicit io.Writer, so host-side structured logs never share a stream
// with guest terminal output — the two must never interleave.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Handler formats records as "TIME LEVEL: message key=value ...".
type Handler struct {
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	level slog.Leveler
}

// New builds a logger writing to out at the given minimum level.
func New(out io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	return slog.New(&Handler{out: out, mu: &sync.Mutex{}, level: level})
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &Handler{out: h.out, mu: h.mu, attrs: next, level: h.level}
}

func (h *Handler) WithGroup(_ string) slog.Handler {
	// The console/driver logging this package serves has no nested
	// groups; WithGroup is a no-op that preserves the handler, matching
	// the flat key=value style used throughout.
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ts := r.Time.Format("2006-01-02T15:04:05")
	fmt.Fprintf(h.out, "%s %s: %s", ts, r.Level.String(), r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.out)
	return nil
}
