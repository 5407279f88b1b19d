package export

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// CSVSink writes rows as CSV with a header line in [pipeline.Columns]
// order. Unknown values are empty cells.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink writing to path. The file is created on the
// first Write and replaced on every later one.
func NewCSVSink(path string) *CSVSink { return &CSVSink{path: path} }

// Path returns the output path.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Write(_ context.Context, res *pipeline.Result) error {
	f, err := os.Create(s.path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", s.path)
	}
	if err := WriteCSV(f, res.Rows); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", s.path)
	}
	return f.Close()
}

// Close does nothing; the file is closed after each write.
func (s *CSVSink) Close() error { return nil }

// WriteCSV writes the header and rows to w.
func WriteCSV(w io.Writer, rows []pipeline.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pipeline.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
