package cli

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/enrich"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/export"
	"github.com/matzehuels/steamfam/pkg/integrations/community"
	"github.com/matzehuels/steamfam/pkg/integrations/store"
	"github.com/matzehuels/steamfam/pkg/library"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// defaultLibraryWorkers is the review fetch pool size of the library
// command.
const defaultLibraryWorkers = 8

// libraryCommand creates the single-profile export command.
func (c *CLI) libraryCommand() *cobra.Command {
	var (
		output    string
		noReviews bool
		workers   int
		dayRange  int
	)

	cmd := &cobra.Command{
		Use:   "library <profile-url>",
		Short: "Export one profile's library with recent review details",
		Long: `Export a single profile's library to CSV.

The games feed is read first; when it has no games the profile's games page
is parsed instead. Unless --no-reviews is given, the recent review summary
of every game is fetched as well.`,
		Example: `  steamfam library https://steamcommunity.com/id/gabelogannewell
  steamfam library https://steamcommunity.com/profiles/76561197960287930 --no-reviews`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 || workers > pipeline.MaxWorkers {
				return errors.New(errors.ErrCodeInvalidConfig, "workers must be between 1 and %d", pipeline.MaxWorkers)
			}
			return c.exportLibrary(cmd.Context(), args[0], output, !noReviews, workers, dayRange)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path (default steam_library_<name>_<timestamp>.csv)")
	cmd.Flags().BoolVar(&noReviews, "no-reviews", false, "do not fetch recent review summaries")
	cmd.Flags().IntVarP(&workers, "workers", "w", defaultLibraryWorkers, "concurrent review fetches")
	cmd.Flags().IntVar(&dayRange, "day-range", pipeline.DefaultDayRange, "recent review window in days")

	return cmd
}

func (c *CLI) exportLibrary(ctx context.Context, profileURL, output string, withReviews bool, workers, dayRange int) error {
	t, err := c.newTransport(ctx, c.Config.Cache)
	if err != nil {
		return err
	}
	defer t.Cache.Close()
	comm := community.NewClient(t)

	id, ok := accounts.NewResolver(comm, c.Logger).Resolve(ctx, profileURL)
	if !ok {
		return errors.New(errors.ErrCodeUnresolvable, "could not resolve %s to a SteamID", profileURL)
	}

	prog := newProgress(c.Logger)
	out := library.NewFetcher(comm, c.Logger).Fetch(ctx, id)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !out.OK() {
		if out.Err != nil {
			return out.Err
		}
		return errors.New(errors.ErrCodeLibraryHidden, library.HiddenMessage)
	}
	prog.done(fmt.Sprintf("Fetched %d games via %s", len(out.Items), out.Source))

	rows := make([]export.LibraryRow, len(out.Items))
	for i, it := range out.Items {
		rows[i].Item = it
	}
	if withReviews {
		if err := c.fetchRecentReviews(ctx, store.NewClient(t), rows, workers, dayRange); err != nil {
			return err
		}
	}

	if output == "" {
		output = export.LibraryFileName(labelFor(profileURL, id), time.Now())
	}
	if err := export.WriteLibraryFile(output, rows, withReviews); err != nil {
		return err
	}
	printSuccess("Exported %d games", len(rows))
	printFile(output)
	return nil
}

// fetchRecentReviews fills rows[i].Reviews in place, keeping row order.
func (c *CLI) fetchRecentReviews(ctx context.Context, s *store.Client, rows []export.LibraryRow, workers, dayRange int) error {
	re := enrich.NewReviewEnricher(s, c.Logger)
	spin := newSpinner(ctx, c.errOut, "Fetching recent reviews")
	spin.Start()
	defer spin.Stop()

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range rows {
		g.Go(func() error {
			rv := re.Recent(gctx, rows[i].Item.ID, dayRange)
			rows[i].Reviews = &rv
			spin.Update("Fetching recent reviews %d/%d", done.Add(1), len(rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
