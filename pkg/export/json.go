package export

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// JSONSink writes the whole result, stats and coverage included, as one
// indented JSON document.
type JSONSink struct {
	path string
	w    io.Writer
}

// NewJSONSink creates a sink writing to path.
func NewJSONSink(path string) *JSONSink { return &JSONSink{path: path} }

// NewJSONWriterSink creates a sink writing to w, e.g. stdout.
func NewJSONWriterSink(w io.Writer) *JSONSink { return &JSONSink{w: w} }

// Path returns the output path, or "" for writer sinks.
func (s *JSONSink) Path() string { return s.path }

func (s *JSONSink) Write(_ context.Context, res *pipeline.Result) error {
	if s.w != nil {
		return encodeJSON(s.w, res)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", s.path)
	}
	if err := encodeJSON(f, res); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", s.path)
	}
	return f.Close()
}

// Close does nothing.
func (s *JSONSink) Close() error { return nil }

func encodeJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
