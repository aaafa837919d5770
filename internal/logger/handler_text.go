package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// levelLabel maps a slog level to its fixed-width label and color. Levels
// between the standard four inherit the label of the band they fall in.
func levelLabel(level slog.Level) (string, string) {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG", colorGray
	case level < slog.LevelWarn:
		return "INFO ", colorGreen
	case level < slog.LevelError:
		return "WARN ", colorYellow
	default:
		return "ERROR", colorRed
	}
}

// ColorTextHandler is a slog.Handler producing single-line key=value text,
// optionally colorized for terminals. The daemon's operational fields
// (fd, fstype, phase, context_id) read as plain tokens; values carrying
// spaces or control characters are quoted, and error values are painted
// red so failures stand out when tailing the log.
type ColorTextHandler struct {
	opts     *slog.HandlerOptions
	w        io.Writer
	mu       *sync.Mutex
	attrs    []slog.Attr
	prefix   string // dotted group path applied to attribute keys
	useColor bool
}

// NewColorTextHandler creates a handler writing to w. A nil opts uses the
// default Info threshold.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &ColorTextHandler{
		opts:     opts,
		w:        w,
		mu:       &sync.Mutex{},
		useColor: useColor,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ColorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats one record as "[time] [LEVEL] message k=v ...".
func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	label, color := levelLabel(r.Level)
	if h.useColor {
		label = color + label + colorReset
	}

	// The line is assembled in a local buffer; only the write is locked.
	buf := make([]byte, 0, 256)
	buf = fmt.Appendf(buf, "[%s] [%s] %s", r.Time.Format(time.DateTime), label, r.Message)

	for _, attr := range h.attrs {
		buf = h.appendAttr(buf, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})

	buf = append(buf, '\n')

	h.mu.Lock()
	_, err := h.w.Write(buf)
	h.mu.Unlock()
	return err
}

// appendAttr renders one attribute as key=value, applying the group
// prefix and quoting values that would not survive as a single token.
func (h *ColorTextHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	a.Value = a.Value.Resolve()

	key := h.prefix + a.Key
	val := renderValue(a.Value)

	switch {
	case h.useColor && key == "error":
		buf = fmt.Appendf(buf, " %s%s=%s%s", colorRed, key, val, colorReset)
	case h.useColor:
		buf = fmt.Appendf(buf, " %s%s%s=%s", colorCyan, key, colorReset, val)
	default:
		buf = fmt.Appendf(buf, " %s=%s", key, val)
	}
	return buf
}

// renderValue formats a slog.Value as a single token.
func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindInt64:
		s = strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		s = strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		s = strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprintf("%v", v.Any())
	}

	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, " \t\n\"") {
		return true
	}
	return false
}

// WithAttrs returns a handler that prepends attrs to every record.
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler qualifying subsequent keys with name.
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
