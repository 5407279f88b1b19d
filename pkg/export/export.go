// Package export writes pipeline results to files and databases.
//
// Every destination implements [Sink]. The CLI writes a CSV file by
// default and can add JSON, SQLite and MongoDB destinations; [Multi] fans
// one result out to all of them.
package export

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// Sink receives finished results.
type Sink interface {
	Write(ctx context.Context, res *pipeline.Result) error
	Close() error
}

// FilePrefix starts every default output file name.
const FilePrefix = "steam_family_combined_"

// DefaultFileName returns the timestamped output name for a run started
// at t, e.g. steam_family_combined_20240131_154500.csv.
func DefaultFileName(t time.Time, ext string) string {
	return fmt.Sprintf("%s%s.%s", FilePrefix, t.Format("20060102_150405"), ext)
}

type multi []Sink

// Multi returns a Sink that writes to every sink in order. Writing stops
// at the first failure; Close closes all sinks and joins their errors.
func Multi(sinks ...Sink) Sink { return multi(sinks) }

func (m multi) Write(ctx context.Context, res *pipeline.Result) error {
	for _, s := range m {
		if err := s.Write(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
