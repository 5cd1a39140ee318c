package slogobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// compactHandler writes one line per record:
//
//	2006-01-02 15:04:05 LEVEL message → {"key":"value"}
type compactHandler struct {
	mu     *sync.Mutex
	output io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func newCompactHandler(output io.Writer, level slog.Leveler) *compactHandler {
	return &compactHandler{mu: &sync.Mutex{}, output: output, level: level}
}

func (h *compactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *compactHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		fields[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[h.prefix+attr.Key] = attr.Value.Any()
		return true
	})

	line := fmt.Sprintf("%s %5s %s", record.Time.Format("2006-01-02 15:04:05"), levelString(record.Level), record.Message)
	if len(fields) > 0 {
		encoded, err := json.Marshal(fields)
		if err != nil {
			encoded = []byte(`{"error":"unencodable attributes"}`)
		}
		line += " → " + string(encoded)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, line+"\n")
	return err
}

func (h *compactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}
	return &clone
}

func (h *compactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// newHandler picks the slog.Handler for format.
func newHandler(format Format, output io.Writer, level slog.Level) slog.Handler {
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	case FormatText:
		return slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	default:
		return newCompactHandler(output, level)
	}
}
