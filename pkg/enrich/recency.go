package enrich

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/integrations/news"
)

// NewsSource is the news surface the recency enricher reads.
// *news.Client implements it.
type NewsSource interface {
	News(ctx context.Context, id string) ([]news.Item, error)
}

var updateKeywordsRE = regexp.MustCompile(`(?i)\b(update|patch|hotfix|changelog|balance|bug\s*fix|release\s*notes)\b`)

const patchNotesTag = "patchnotes"

// RecencyEnricher estimates the year an item was last updated from its
// news feed.
type RecencyEnricher struct {
	source NewsSource
	logger *log.Logger
}

// NewRecencyEnricher creates a RecencyEnricher.
func NewRecencyEnricher(s NewsSource, logger *log.Logger) *RecencyEnricher {
	if logger == nil {
		logger = discardLogger()
	}
	return &RecencyEnricher{source: s, logger: logger}
}

// Resolve returns the UTC year of the newest update-like news entry, or of
// the newest entry when none looks like an update.
func (e *RecencyEnricher) Resolve(ctx context.Context, id string) (int, bool) {
	items, err := e.source.News(ctx, id)
	if err != nil {
		e.logger.Debug("news fetch failed", "appid", id, "err", err)
		return 0, false
	}
	return LastUpdateYear(items)
}

// LastUpdateYear picks the newest entry whose title or contents mention an
// update keyword or that carries the patchnotes tag, falling back to the
// newest entry overall. Entries without a timestamp are ignored.
func LastUpdateYear(items []news.Item) (int, bool) {
	var best, newest int64
	for _, it := range items {
		if it.Date <= 0 {
			continue
		}
		if IsUpdateEntry(it) && it.Date > best {
			best = it.Date
		}
		if it.Date > newest {
			newest = it.Date
		}
	}
	ts := best
	if ts == 0 {
		ts = newest
	}
	if ts == 0 {
		return 0, false
	}
	return time.Unix(ts, 0).UTC().Year(), true
}

// IsUpdateEntry reports whether a news entry looks like a patch or update.
func IsUpdateEntry(it news.Item) bool {
	if updateKeywordsRE.MatchString(it.Title) || updateKeywordsRE.MatchString(it.Contents) {
		return true
	}
	for _, t := range it.Tags {
		if strings.EqualFold(t, patchNotesTag) {
			return true
		}
	}
	return false
}
