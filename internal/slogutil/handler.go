// Package slogutil provides the slog handler and logger constructors used by jsonorder.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Attribute keys that name the document a line belongs to. At the top level
// they are lifted out of the key=value tail into the line's scope.
const (
	OpKey = "op"
	IDKey = "id"
)

// LineHandler is a slog handler that writes one line per record:
//
//	TIMESTAMP [level] (op id) Message | key=value key=value
//
// The scope in parentheses is omitted when neither op nor id is set. Error
// values are written through Error(). Group members are flattened to
// dotted keys.
type LineHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	prefix string // open groups, "a.b."
	op, id string
	tail   []byte // pre-rendered " key=value" pairs from WithAttrs
}

// NewLineHandler creates a new line handler.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &LineHandler{mu: &sync.Mutex{}, w: w, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	line := lineState{op: h.op, id: h.id, tail: append([]byte(nil), h.tail...)}
	r.Attrs(func(a slog.Attr) bool {
		line.add(h.prefix, a)
		return true
	})

	buf := make([]byte, 0, 128+len(line.tail))
	buf = r.Time.UTC().AppendFormat(buf, time.RFC3339)
	buf = append(buf, " ["...)
	buf = append(buf, levelString(r.Level)...)
	buf = append(buf, "] "...)
	if scope := line.scope(); scope != "" {
		buf = append(buf, '(')
		buf = append(buf, scope...)
		buf = append(buf, ") "...)
	}
	buf = append(buf, r.Message...)
	if len(line.tail) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, line.tail...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	line := lineState{op: h.op, id: h.id, tail: append([]byte(nil), h.tail...)}
	for _, a := range attrs {
		line.add(h.prefix, a)
	}
	h2 := *h
	h2.op, h2.id, h2.tail = line.op, line.id, line.tail
	return &h2
}

// WithGroup returns a new handler with the given group name added.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// lineState collects the scope and key=value tail of one line.
type lineState struct {
	op, id string
	tail   []byte
}

func (l *lineState) add(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if len(members) == 0 {
			return
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, m := range members {
			l.add(prefix, m)
		}
		return
	}
	if a.Key == "" {
		return
	}

	if prefix == "" {
		switch a.Key {
		case OpKey:
			l.op = a.Value.String()
			return
		case IDKey:
			l.id = a.Value.String()
			return
		}
	}

	l.tail = append(l.tail, ' ')
	l.tail = append(l.tail, prefix...)
	l.tail = append(l.tail, a.Key...)
	l.tail = append(l.tail, '=')
	l.tail = appendValue(l.tail, a.Value)
}

func (l *lineState) scope() string {
	switch {
	case l.op == "":
		return l.id
	case l.id == "":
		return l.op
	default:
		return l.op + " " + l.id
	}
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func appendValue(dst []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendString(dst, v.String())
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(dst, time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return appendString(dst, err.Error())
		}
		return appendString(dst, v.String())
	default:
		// Numbers, booleans and durations never need quoting.
		return append(dst, v.String()...)
	}
}

// appendString quotes s when it would break the key=value layout.
func appendString(dst []byte, s string) []byte {
	if s == "" || strings.ContainsFunc(s, needsQuote) {
		return strconv.AppendQuote(dst, s)
	}
	return append(dst, s...)
}

func needsQuote(r rune) bool {
	return r == '"' || r == '=' || unicode.IsSpace(r) || !unicode.IsPrint(r)
}
