package enrich

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/httputil"
	"github.com/matzehuels/steamfam/pkg/integrations/store"
)

// DefaultDayRange is the recent review window in days.
const DefaultDayRange = 30

// Fallback descriptions for summaries that carry totals but no text.
const (
	RecentReviewsDesc  = "Recent reviews"
	OverallReviewsDesc = "Overall reviews"
)

// ReviewSource is the store surface the review enricher reads.
// *store.Client implements it.
type ReviewSource interface {
	ReviewSummary(ctx context.Context, id string, dayRange int) (*store.QuerySummary, error)
	ReviewSummaryOnce(ctx context.Context, id string, dayRange int) (*store.QuerySummary, error)
}

// RecentReviews is the detailed recent-window summary exported by the
// single-profile export. All fields are nil when the fetch gave up.
type RecentReviews struct {
	Score           *int     `json:"recent_review_score,omitempty"`
	Description     string   `json:"recent_review_desc"`
	Total           *int     `json:"recent_total_reviews,omitempty"`
	Positive        *int     `json:"recent_positive,omitempty"`
	Negative        *int     `json:"recent_negative,omitempty"`
	PercentPositive *float64 `json:"recent_percent_positive,omitempty"`
}

// ReviewEnricher resolves review summaries.
type ReviewEnricher struct {
	source ReviewSource
	logger *log.Logger

	// Attempts and Backoff drive [ReviewEnricher.Recent]. Backoff returns
	// the wait after the zero-based failed attempt n.
	Attempts int
	Backoff  func(n int) time.Duration
}

// NewReviewEnricher creates a ReviewEnricher with three attempts and a
// 1.2^n seconds + 200ms backoff for [ReviewEnricher.Recent].
func NewReviewEnricher(s ReviewSource, logger *log.Logger) *ReviewEnricher {
	if logger == nil {
		logger = discardLogger()
	}
	return &ReviewEnricher{source: s, logger: logger, Attempts: 3, Backoff: DefaultReviewBackoff}
}

// DefaultReviewBackoff waits 1.2^n seconds plus 200ms after attempt n.
func DefaultReviewBackoff(n int) time.Duration {
	return time.Duration(math.Pow(1.2, float64(n))*float64(time.Second)) + 200*time.Millisecond
}

// Resolve returns the recent-window summary when it has reviews, else the
// all-time summary when it has reviews, else [catalog.EmptyReviews].
func (e *ReviewEnricher) Resolve(ctx context.Context, id string, dayRange int) catalog.ReviewSummary {
	if dayRange <= 0 {
		dayRange = DefaultDayRange
	}
	if s, ok := e.window(ctx, id, dayRange, RecentReviewsDesc); ok {
		return s
	}
	if s, ok := e.window(ctx, id, 0, OverallReviewsDesc); ok {
		return s
	}
	return catalog.EmptyReviews()
}

func (e *ReviewEnricher) window(ctx context.Context, id string, dayRange int, fallbackDesc string) (catalog.ReviewSummary, bool) {
	q, err := e.source.ReviewSummary(ctx, id, dayRange)
	if err != nil {
		e.logger.Debug("review summary failed", "appid", id, "day_range", dayRange, "err", err)
		return catalog.ReviewSummary{}, false
	}
	if q.TotalReviews <= 0 {
		return catalog.ReviewSummary{}, false
	}
	desc := q.ReviewScoreDesc
	if desc == "" {
		desc = fallbackDesc
	}
	return catalog.ReviewSummary{
		Description:     desc,
		PercentPositive: catalog.Ptr(PercentPositive(q.TotalPositive, q.TotalReviews)),
	}, true
}

// PercentPositive returns positive/total*100 rounded to two decimals.
// Callers only use it when total > 0.
func PercentPositive(positive, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(positive) / float64(total) * 100)
}

// Recent fetches the recent-window summary, retrying 429, 503 and
// transport failures up to Attempts times with Backoff between them. When
// every attempt fails a warning is logged and an all-absent summary returned.
func (e *ReviewEnricher) Recent(ctx context.Context, id string, dayRange int) RecentReviews {
	if dayRange <= 0 {
		dayRange = DefaultDayRange
	}
	backoff := e.Backoff
	if backoff == nil {
		backoff = DefaultReviewBackoff
	}
	policy := httputil.Policy{Attempts: max(e.Attempts, 1), Backoff: backoff}

	var q *store.QuerySummary
	err := httputil.Retry(ctx, policy, func() error {
		var err error
		q, err = e.source.ReviewSummaryOnce(ctx, id, dayRange)
		return err
	})
	if err != nil {
		e.logger.Warn("reviews fetch failed", "appid", id, "err", err)
		return RecentReviews{}
	}
	return recentFrom(q)
}

func recentFrom(q *store.QuerySummary) RecentReviews {
	r := RecentReviews{
		Score:       catalog.Ptr(q.ReviewScore),
		Description: q.ReviewScoreDesc,
		Total:       catalog.Ptr(q.TotalReviews),
		Positive:    catalog.Ptr(q.TotalPositive),
		Negative:    catalog.Ptr(q.TotalNegative),
	}
	if q.TotalReviews > 0 {
		r.PercentPositive = catalog.Ptr(PercentPositive(q.TotalPositive, q.TotalReviews))
	}
	return r
}
