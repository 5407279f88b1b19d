// Package pipeline runs the steamfam aggregation pipeline.
//
// The pipeline resolves account identifiers, fetches every account's
// library, merges them into one catalog and enriches each unique item with
// store metadata, review summaries and the year of its last update. The CLI
// and the HTTP API both drive it through [Runner].
//
// # Stages
//
//  1. Resolve: turn list entries into canonical account ids
//  2. Fetch: read each account's library, one account at a time
//  3. Aggregate: merge all libraries into a [catalog.Catalog]
//  4. Metadata: kind, release year, install size and availability per item
//  5. Reviews and recency: review summary and last update year per item
//  6. Filter and sort: drop delisted items and order the rows
//
// Stages 4 and 5 run on a bounded worker pool. Every outbound request waits
// on the shared per-host throttle, so the worker count bounds concurrency,
// not request rate.
//
// # Usage
//
//	runner := pipeline.NewRunner(integrations.NewTransport(), logger)
//	entries, _ := accounts.ParseFile("ids.txt", logger)
//	result, err := runner.Execute(ctx, entries, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	for _, row := range result.Rows {
//	    fmt.Println(row.Name, row.Owners)
//	}
//
// Only two conditions fail a run: no usable accounts and no items across
// all accounts. Everything else degrades to blank columns, failed account
// entries and warnings.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/httputil"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Config
// =============================================================================

const (
	// DefaultWorkers is the enrichment pool size in safe mode.
	DefaultWorkers = 6

	// FastWorkers is the enrichment pool size in fast mode.
	FastWorkers = 12

	// MaxWorkers caps the enrichment pool size.
	MaxWorkers = 128

	// DefaultDayRange is the recent review window in days.
	DefaultDayRange = 30

	// MaxDayRange caps the recent review window.
	MaxDayRange = 365

	// ProgressEvery is how often the concurrent stages log progress.
	ProgressEvery = 50

	// CoverageHintPercent is the coverage below which the report suggests
	// turning a feature off.
	CoverageHintPercent = 50.0
)

// Stage names one step of a run. Stage names are reported to
// observability hooks and logs.
type Stage string

const (
	StageResolve   Stage = "resolve_identities"
	StageFetch     Stage = "fetch_libraries"
	StageAggregate Stage = "aggregate"
	StageMetadata  Stage = "enrich_metadata"
	StageEnrich    Stage = "enrich_reviews_recency"
	StageFilter    Stage = "filter_sort"
	StageDone      Stage = "done"
)

// Output column names, in order.
const (
	ColAppID         = "appid"
	ColName          = "name"
	ColOwners        = "owners"
	ColHours         = "combined_hours_on_record"
	ColReviewSummary = "review_summary"
	ColRecentPercent = "recent_percent_positive"
	ColReleaseYear   = "release_year"
	ColLastUpdate    = "last_update_year"
	ColInstallSize   = "approx_install_size_gb"
)

// Columns is the output column order shared by every sink.
var Columns = []string{
	ColAppID, ColName, ColOwners, ColHours,
	ColReviewSummary, ColRecentPercent,
	ColReleaseYear, ColLastUpdate, ColInstallSize,
}

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures a run. The zero value is a safe-mode run with every
// feature enabled.
type Options struct {
	// Fast switches the worker count and throttle delays to the faster
	// preset. Explicit Workers and Delays still win.
	Fast bool `json:"fast,omitempty" toml:"fast"`

	Workers  int `json:"workers,omitempty" toml:"workers"`
	DayRange int `json:"day_range,omitempty" toml:"day_range"`

	SkipReviews     bool `json:"skip_reviews,omitempty" toml:"skip_reviews"`
	SkipReleaseSize bool `json:"skip_release_size,omitempty" toml:"skip_release_size"`
	SkipLastUpdate  bool `json:"skip_last_update,omitempty" toml:"skip_last_update"`

	// Delays and Jitter configure the shared throttle for the run. A nil
	// value selects the mode's preset; zero entries disable spacing.
	Delays httputil.Delays `json:"-" toml:"-"`
	Jitter *time.Duration  `json:"-" toml:"-"`

	Logger *log.Logger `json:"-" toml:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Workers < 0 || o.Workers > MaxWorkers {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must be between 1 and %d, got %d", MaxWorkers, o.Workers)
	}
	if o.DayRange < 0 || o.DayRange > MaxDayRange {
		return errors.New(errors.ErrCodeInvalidConfig, "day range must be between 1 and %d, got %d", MaxDayRange, o.DayRange)
	}
	if o.Jitter != nil && *o.Jitter < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "jitter cannot be negative")
	}
	for host, d := range o.Delays {
		if d < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "delay for %s cannot be negative", host)
		}
	}

	if o.Workers == 0 {
		o.Workers = DefaultWorkers
		if o.Fast {
			o.Workers = FastWorkers
		}
	}
	if o.DayRange == 0 {
		o.DayRange = DefaultDayRange
	}
	if o.Delays == nil {
		o.Delays = httputil.SafeDelays
		if o.Fast {
			o.Delays = httputil.FastDelays
		}
	}
	if o.Jitter == nil {
		j := httputil.SafeJitter
		if o.Fast {
			j = httputil.FastJitter
		}
		o.Jitter = &j
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// IncludeReviews reports whether the review columns are filled.
func (o *Options) IncludeReviews() bool { return !o.SkipReviews }

// IncludeReleaseSize reports whether the release year and install size
// columns are filled.
func (o *Options) IncludeReleaseSize() bool { return !o.SkipReleaseSize }

// IncludeLastUpdate reports whether the last update column is filled.
func (o *Options) IncludeLastUpdate() bool { return !o.SkipLastUpdate }

// Features summarizes which optional columns a run filled.
type Features struct {
	Reviews     bool `json:"reviews"`
	ReleaseSize bool `json:"release_size"`
	LastUpdate  bool `json:"last_update"`
}

// Features returns the feature toggles as positive flags.
func (o *Options) Features() Features {
	return Features{
		Reviews:     o.IncludeReviews(),
		ReleaseSize: o.IncludeReleaseSize(),
		LastUpdate:  o.IncludeLastUpdate(),
	}
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of a run.
type Result struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Features  Features  `json:"features"`

	Rows     []Row    `json:"rows"`
	Stats    Stats    `json:"stats"`
	Coverage Coverage `json:"coverage"`

	// TypeCounts counts aggregated items per kind, before the delisted
	// filter. Items whose kind could not be determined count as unknown.
	TypeCounts       map[catalog.Kind]int `json:"type_counts"`
	ExcludedDelisted int                  `json:"excluded_delisted"`

	Accounts       []catalog.AccountRef `json:"accounts"`
	FailedAccounts []FailedAccount      `json:"failed_accounts,omitempty"`
	OKAccounts     int                  `json:"ok_accounts"`
	TotalAccounts  int                  `json:"total_accounts"`
}

// FailedAccount records an account whose library could not be read.
type FailedAccount struct {
	Label  string `json:"label"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (f FailedAccount) String() string {
	return f.Label + " (" + f.ID + ") - " + f.Reason
}

// Stats holds stage timings. Reviews and LastUpdate are cumulative across
// workers, so they can exceed Enrichment.
type Stats struct {
	Items          int           `json:"items"`
	Resolve        time.Duration `json:"resolve_ns"`
	FetchLibraries time.Duration `json:"fetch_libraries_ns"`
	Metadata       time.Duration `json:"metadata_ns"`
	Enrichment     time.Duration `json:"enrichment_ns"`
	Reviews        time.Duration `json:"reviews_ns"`
	LastUpdate     time.Duration `json:"last_update_ns"`
	Total          time.Duration `json:"total_ns"`
}

// PerItem divides d by the number of enriched items.
func (s Stats) PerItem(d time.Duration) time.Duration {
	return d / time.Duration(max(1, s.Items))
}
