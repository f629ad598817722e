package report

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/nao1215/lure/internal/model"
)

// countingWriter tracks bytes written to the final destination.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// JSONLWriter streams events as JSON Lines, one event object per line.
type JSONLWriter struct {
	baseWriter

	gzip  bool
	level int
}

// JSONLWriterOption configures a JSONLWriter.
type JSONLWriterOption func(*JSONLWriter)

// WithGzip compresses the stream at the given gzip level.
func WithGzip(level int) JSONLWriterOption {
	return func(w *JSONLWriter) {
		w.gzip = true
		w.level = level
	}
}

// NewJSONLWriter creates a JSONLWriter that outputs to the given writer.
func NewJSONLWriter(output io.Writer, opts ...JSONLWriterOption) *JSONLWriter {
	w := &JSONLWriter{
		baseWriter: newBaseWriter(output),
		level:      gzip.DefaultCompression,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteEvents encodes events in order and returns the number of bytes
// written to the destination, compressed when gzip is enabled.
func (w *JSONLWriter) WriteEvents(events []model.Event) (int, error) {
	out := &countingWriter{w: w.output}
	if !w.gzip {
		if err := encodeLines(out, events); err != nil {
			return out.n, err
		}
		return out.n, nil
	}

	gz, err := gzip.NewWriterLevel(out, w.level)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if err := encodeLines(gz, events); err != nil {
		_ = gz.Close()
		return out.n, err
	}
	if err := gz.Close(); err != nil {
		return out.n, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return out.n, nil
}

func encodeLines(w io.Writer, events []model.Event) error {
	enc := json.NewEncoder(w)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("failed to encode event %d: %w", events[i].ID, err)
		}
	}
	return nil
}
