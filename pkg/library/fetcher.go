// Package library reads one account's owned items.
//
// The XML games feed is tried first. When it yields no items, for whatever
// reason, the HTML games page is fetched and its embedded rgGames script
// blob is decoded instead. Neither failure is fatal: an account whose
// library cannot be read produces an empty [Outcome] with Err set.
package library

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/errors"
)

// Source names where an account's items came from.
type Source string

const (
	SourceNone Source = ""
	SourceFeed Source = "xml"
	SourcePage Source = "html"
)

// HiddenMessage is the failure reason for accounts with no visible items.
const HiddenMessage = "No games visible (check Game details privacy = Public)"

// Community is the subset of the community client the fetcher needs.
// *community.Client implements it.
type Community interface {
	GamesFeed(ctx context.Context, id string) ([]byte, error)
	GamesPage(ctx context.Context, id string) (string, error)
}

// Outcome is the result of fetching one account's library.
type Outcome struct {
	Items  []catalog.LibraryItem
	Source Source
	Err    error
}

// OK reports whether any items were found.
func (o Outcome) OK() bool { return len(o.Items) > 0 }

// Fetcher fetches owned items for accounts.
type Fetcher struct {
	community Community
	logger    *log.Logger
}

// NewFetcher creates a Fetcher. A nil logger discards output.
func NewFetcher(c Community, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Fetcher{community: c, logger: logger}
}

// Fetch returns the owned items of account id. It issues exactly one
// follow-up request when the feed is empty and none when it has items.
func (f *Fetcher) Fetch(ctx context.Context, id string) Outcome {
	items, err := f.fromFeed(ctx, id)
	if len(items) > 0 {
		return Outcome{Items: items, Source: SourceFeed}
	}
	if err != nil {
		f.logger.Debug("games feed failed", "id", id, "err", err)
	}
	if ctx.Err() != nil {
		return Outcome{Err: ctx.Err()}
	}

	items, err = f.fromPage(ctx, id)
	if len(items) > 0 {
		return Outcome{Items: items, Source: SourcePage}
	}
	if err != nil {
		f.logger.Debug("games page failed", "id", id, "err", err)
	}
	if ctx.Err() != nil {
		return Outcome{Err: ctx.Err()}
	}
	return Outcome{Err: errors.New(errors.ErrCodeLibraryHidden, HiddenMessage)}
}

func (f *Fetcher) fromFeed(ctx context.Context, id string) ([]catalog.LibraryItem, error) {
	body, err := f.community.GamesFeed(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := ParseFeed(body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("games feed parsed", "id", id, "items", len(items))
	return items, nil
}

func (f *Fetcher) fromPage(ctx context.Context, id string) ([]catalog.LibraryItem, error) {
	html, err := f.community.GamesPage(ctx, id)
	if err != nil {
		return nil, err
	}
	items, ok := ParsePage(html)
	if !ok {
		f.logger.Debug("rgGames blob not found in games page", "id", id)
		return nil, nil
	}
	f.logger.Debug("games page parsed", "id", id, "items", len(items))
	return items, nil
}
