package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/enrich"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/integrations"
)

// Single-profile export columns.
var (
	LibraryColumns = []string{"appid", "name", "hours_on_record", "store_link"}

	RecentReviewColumns = []string{
		"recent_review_score",
		"recent_review_desc",
		"recent_total_reviews",
		"recent_positive",
		"recent_negative",
		"recent_percent_positive",
	}
)

// LibraryRow is one item of a single-profile export. Reviews is nil when
// reviews were not requested.
type LibraryRow struct {
	Item    catalog.LibraryItem
	Reviews *enrich.RecentReviews
}

// LibraryFileName returns the default single-profile output name, e.g.
// steam_library_gabelogannewell_20240131_154500.csv.
func LibraryFileName(who string, t time.Time) string {
	return fmt.Sprintf("steam_library_%s_%s.csv", who, t.Format("20060102_150405"))
}

// StoreLink returns the store page URL of an item.
func StoreLink(id string) string {
	return integrations.StoreURL + "app/" + id + "/"
}

// WriteLibraryFile writes rows to path as CSV.
func WriteLibraryFile(path string, rows []LibraryRow, withReviews bool) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	if err := WriteLibraryCSV(f, rows, withReviews); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return f.Close()
}

// WriteLibraryCSV writes a single-profile export. The review columns are
// only present when withReviews is set.
func WriteLibraryCSV(w io.Writer, rows []LibraryRow, withReviews bool) error {
	header := append([]string{}, LibraryColumns...)
	if withReviews {
		header = append(header, RecentReviewColumns...)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Item.ID,
			r.Item.Name,
			strconv.FormatFloat(r.Item.Hours, 'f', -1, 64),
			StoreLink(r.Item.ID),
		}
		if withReviews {
			var rv enrich.RecentReviews
			if r.Reviews != nil {
				rv = *r.Reviews
			}
			rec = append(rec,
				intCell(rv.Score),
				rv.Description,
				intCell(rv.Total),
				intCell(rv.Positive),
				intCell(rv.Negative),
				floatCell(rv.PercentPositive),
			)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
