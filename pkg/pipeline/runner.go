package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/enrich"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations"
	"github.com/matzehuels/steamfam/pkg/integrations/community"
	"github.com/matzehuels/steamfam/pkg/integrations/news"
	"github.com/matzehuels/steamfam/pkg/integrations/store"
	"github.com/matzehuels/steamfam/pkg/library"
	"github.com/matzehuels/steamfam/pkg/observability"
)

// Messages for the two fatal conditions.
const (
	NoAccountsMessage = "No valid lines found. Expected 'Username: SteamID64' or a profile URL."
	NoItemsMessage    = "No games found across provided accounts."
)

// Runner executes runs against the upstream clients it holds.
//
// A Runner keeps no state between runs apart from the shared transport,
// but runs share its throttle: concurrent runs on one Runner pace their
// requests together.
type Runner struct {
	Community *community.Client
	Store     *store.Client
	News      *news.Client
	Throttle  *httputil.Throttle
	Logger    *log.Logger
}

// NewRunner creates a runner whose clients share t. A nil t uses
// [integrations.NewTransport]; a nil logger discards output.
func NewRunner(t *integrations.Transport, logger *log.Logger) *Runner {
	if t == nil {
		t = integrations.NewTransport()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Community: community.NewClient(t),
		Store:     store.NewClient(t),
		News:      news.NewClient(t),
		Throttle:  t.Throttle,
		Logger:    logger,
	}
}

// fetched is one account's successful library read.
type fetched struct {
	account catalog.AccountRef
	items   []catalog.LibraryItem
}

// Execute runs the pipeline over the account list entries.
//
// It fails with [errors.ErrCodeNoAccounts] when no entry yields an account
// and with [errors.ErrCodeNoItems] when no account yields an item. Context
// cancellation is returned as is. Every other failure is recorded in the
// result.
func (r *Runner) Execute(ctx context.Context, entries []accounts.Entry, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if len(entries) == 0 {
		return nil, errors.New(errors.ErrCodeNoAccounts, NoAccountsMessage)
	}
	if r.Throttle != nil {
		r.Throttle.Configure(opts.Delays, *opts.Jitter)
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Features:  opts.Features(),
	}
	logger.Debug("starting run", "run_id", res.RunID, "workers", opts.Workers, "day_range", opts.DayRange)

	// Stage 1: Resolve
	var accts []catalog.AccountRef
	d, err := r.stage(ctx, StageResolve, len(entries), func() error {
		accts = accounts.NewResolver(r.Community, logger).ResolveAll(ctx, entries)
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(accts) == 0 {
			return errors.New(errors.ErrCodeNoAccounts, "None of the %d account lines could be resolved to a SteamID.", len(entries))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Resolve = d
	res.Accounts = accts
	res.TotalAccounts = len(accts)
	logger.Info("found accounts, fetching libraries", "accounts", len(accts))

	// Stage 2: Fetch
	var libs []fetched
	d, err = r.stage(ctx, StageFetch, len(accts), func() error {
		var err error
		libs, err = r.fetchLibraries(ctx, accts, res, logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Stats.FetchLibraries = d
	res.OKAccounts = len(libs)

	// Stage 3: Aggregate
	cat := catalog.New()
	if _, err := r.stage(ctx, StageAggregate, len(libs), func() error {
		for _, l := range libs {
			cat.Merge(l.account.ID, l.items)
		}
		if cat.Len() == 0 {
			return errors.New(errors.ErrCodeNoItems, NoItemsMessage)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Info("aggregated libraries", "ok", res.OKAccounts, "total", res.TotalAccounts, "items", cat.Len())

	// Stage 4: Metadata
	ids := cat.IDs()
	enriched := make(map[string]*enrichment, len(ids))
	d, err = r.stage(ctx, StageMetadata, len(ids), func() error {
		return r.enrichMetadata(ctx, ids, enriched, opts)
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Metadata = d

	// Stage 5: Reviews and recency
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		if !enriched[id].meta.IsDelisted() {
			targets = append(targets, id)
		}
	}
	res.Stats.Items = len(targets)
	if opts.IncludeReviews() || opts.IncludeLastUpdate() {
		d, err = r.stage(ctx, StageEnrich, len(targets), func() error {
			return r.enrichItems(ctx, targets, enriched, opts, &res.Stats)
		})
		if err != nil {
			return nil, err
		}
		res.Stats.Enrichment = d
	}

	// Stage 6: Filter and sort
	if _, err := r.stage(ctx, StageFilter, len(ids), func() error {
		res.Rows, res.ExcludedDelisted = buildRows(cat, enriched, res.Features)
		res.TypeCounts = typeCounts(enriched)
		res.Coverage = ComputeCoverage(res.Rows)
		return nil
	}); err != nil {
		return nil, err
	}
	res.Stats.Total = time.Since(res.StartedAt)

	logger.Info("excluded delisted items", "count", res.ExcludedDelisted)
	logger.Info("run complete", "rows", len(res.Rows), "duration", res.Stats.Total)
	return res, nil
}

// stage times fn and reports it to the pipeline hooks.
func (r *Runner) stage(ctx context.Context, s Stage, n int, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, string(s), n)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, string(s), n, d, err)
	return d, err
}

// fetchLibraries reads each account's library, one account at a time.
// Failed accounts are recorded in res; only cancellation is returned.
func (r *Runner) fetchLibraries(ctx context.Context, accts []catalog.AccountRef, res *Result, logger *log.Logger) ([]fetched, error) {
	fetcher := library.NewFetcher(r.Community, logger)
	out := make([]fetched, 0, len(accts))
	for _, a := range accts {
		start := time.Now()
		logger.Info("fetching library", "label", a.Label, "id", a.ID)
		o := fetcher.Fetch(ctx, a.ID)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !o.OK() {
			reason := library.HiddenMessage
			if o.Err != nil {
				reason = errors.UserMessage(o.Err)
			}
			res.FailedAccounts = append(res.FailedAccounts, FailedAccount{Label: a.Label, ID: a.ID, Reason: reason})
			observability.Pipeline().OnAccountFailed(ctx, a.Label, a.ID, reason)
			logger.Warn("account failed", "label", a.Label, "id", a.ID, "reason", reason)
			continue
		}
		logger.Info("library fetched", "label", a.Label, "items", len(o.Items), "source", o.Source, "elapsed", time.Since(start).Round(10*time.Millisecond))
		out = append(out, fetched{account: a, items: o.Items})
	}
	return out, nil
}

func (r *Runner) enrichMetadata(ctx context.Context, ids []string, enriched map[string]*enrichment, opts Options) error {
	me := enrich.NewMetadataEnricher(r.Store, opts.Logger)
	me.NeedSize = opts.IncludeReleaseSize()

	var mu sync.Mutex
	err := forEach(ctx, ids, opts.Workers, "metadata", opts.Logger, func(ctx context.Context, id string) {
		md := me.Resolve(ctx, id)
		mu.Lock()
		enriched[id] = &enrichment{meta: md}
		mu.Unlock()
	})
	// Items a cancelled pool never reached still need an entry.
	for _, id := range ids {
		if enriched[id] == nil {
			enriched[id] = &enrichment{meta: catalog.Metadata{ItemID: id}}
		}
	}
	return err
}

func (r *Runner) enrichItems(ctx context.Context, ids []string, enriched map[string]*enrichment, opts Options, stats *Stats) error {
	reviews := enrich.NewReviewEnricher(r.Store, opts.Logger)
	recency := enrich.NewRecencyEnricher(r.News, opts.Logger)
	var reviewNanos, updateNanos atomic.Int64

	var mu sync.Mutex
	err := forEach(ctx, ids, opts.Workers, "enrichment", opts.Logger, func(ctx context.Context, id string) {
		var rs *catalog.ReviewSummary
		var last *int
		if opts.IncludeReviews() {
			start := time.Now()
			s := reviews.Resolve(ctx, id, opts.DayRange)
			reviewNanos.Add(int64(time.Since(start)))
			rs = &s
		}
		if opts.IncludeLastUpdate() {
			start := time.Now()
			if y, ok := recency.Resolve(ctx, id); ok {
				last = catalog.Ptr(y)
			}
			updateNanos.Add(int64(time.Since(start)))
		}
		mu.Lock()
		e := enriched[id]
		e.reviews = rs
		e.lastUpdate = last
		mu.Unlock()
	})
	stats.Reviews = time.Duration(reviewNanos.Load())
	stats.LastUpdate = time.Duration(updateNanos.Load())
	return err
}

// forEach runs fn for every id on a pool of workers goroutines and logs
// progress every [ProgressEvery] completions. It returns the context's
// error if the context ended before all ids were processed.
func forEach(ctx context.Context, ids []string, workers int, what string, logger *log.Logger, fn func(context.Context, string)) error {
	total := len(ids)
	logger.Info("enriching items", "stage", what, "items", total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	var done atomic.Int64
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, id)
			if n := int(done.Add(1)); n%ProgressEvery == 0 || n == total {
				logger.Info("progress", "stage", what, "done", n, "total", total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
