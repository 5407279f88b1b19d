package pipeline

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/steamfam/pkg/catalog"
)

// Row is one output line. Pointer fields are nil when the value is unknown
// or its feature is disabled; sinks write them as blank cells.
type Row struct {
	AppID                 string   `json:"appid" bson:"appid"`
	Name                  string   `json:"name" bson:"name"`
	Owners                int      `json:"owners" bson:"owners"`
	CombinedHours         float64  `json:"combined_hours_on_record" bson:"combined_hours_on_record"`
	ReviewSummary         *string  `json:"review_summary" bson:"review_summary"`
	RecentPercentPositive *float64 `json:"recent_percent_positive" bson:"recent_percent_positive"`
	ReleaseYear           *int     `json:"release_year" bson:"release_year"`
	LastUpdateYear        *int     `json:"last_update_year" bson:"last_update_year"`
	InstallSizeGB         *float64 `json:"approx_install_size_gb" bson:"approx_install_size_gb"`
}

// Values returns the row's cells in [Columns] order.
func (r Row) Values() []string {
	return []string{
		r.AppID,
		r.Name,
		strconv.Itoa(r.Owners),
		formatFloat(r.CombinedHours),
		derefString(r.ReviewSummary),
		formatFloatPtr(r.RecentPercentPositive),
		formatIntPtr(r.ReleaseYear),
		formatIntPtr(r.LastUpdateYear),
		formatFloatPtr(r.InstallSizeGB),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Coverage counts non-blank cells per column.
type Coverage struct {
	Total   int                `json:"total_rows"`
	Counts  map[string]int     `json:"counts"`
	Percent map[string]float64 `json:"percent"`
}

// ComputeCoverage counts the non-blank cells of every column in rows.
// A cell holding only whitespace counts as blank.
func ComputeCoverage(rows []Row) Coverage {
	c := Coverage{
		Total:   len(rows),
		Counts:  make(map[string]int, len(Columns)),
		Percent: make(map[string]float64, len(Columns)),
	}
	for _, col := range Columns {
		c.Counts[col] = 0
	}
	for _, r := range rows {
		for i, v := range r.Values() {
			if strings.TrimSpace(v) != "" {
				c.Counts[Columns[i]]++
			}
		}
	}
	for _, col := range Columns {
		if c.Total > 0 {
			c.Percent[col] = float64(c.Counts[col]) / float64(c.Total) * 100
		} else {
			c.Percent[col] = 0
		}
	}
	return c
}

// Hint is a suggestion to disable a feature whose column came out mostly
// blank.
type Hint struct {
	Column  string
	Percent float64
}

// Hints returns the enabled optional columns filled below
// [CoverageHintPercent].
func (c Coverage) Hints(f Features) []Hint {
	var cols []string
	if f.ReleaseSize {
		cols = append(cols, ColReleaseYear, ColInstallSize)
	}
	if f.LastUpdate {
		cols = append(cols, ColLastUpdate)
	}
	var out []Hint
	for _, col := range cols {
		if p := c.Percent[col]; p < CoverageHintPercent {
			out = append(out, Hint{Column: col, Percent: p})
		}
	}
	return out
}

// enrichment is everything the concurrent stages learned about one item.
type enrichment struct {
	meta       catalog.Metadata
	reviews    *catalog.ReviewSummary
	lastUpdate *int
}

// buildRows assembles rows for every catalog item, dropping delisted ones,
// and sorts them by owner count descending, then name case-insensitively.
// It returns the rows and the number of delisted items dropped.
func buildRows(cat *catalog.Catalog, enriched map[string]*enrichment, f Features) ([]Row, int) {
	rows := make([]Row, 0, cat.Len())
	excluded := 0
	for _, it := range cat.Items() {
		e := enriched[it.ID]
		if e == nil {
			e = &enrichment{meta: catalog.Metadata{ItemID: it.ID}}
		}
		if e.meta.IsDelisted() {
			excluded++
			continue
		}
		row := Row{
			AppID:         it.ID,
			Name:          it.Name,
			Owners:        it.OwnerCount(),
			CombinedHours: round2(it.Hours),
		}
		if f.Reviews {
			rs := catalog.EmptyReviews()
			if e.reviews != nil {
				rs = *e.reviews
			}
			row.ReviewSummary = catalog.Ptr(rs.Description)
			row.RecentPercentPositive = rs.PercentPositive
		}
		if f.ReleaseSize {
			row.ReleaseYear = e.meta.ReleaseYear
			row.InstallSizeGB = e.meta.InstallSizeGB
		}
		if f.LastUpdate {
			row.LastUpdateYear = e.lastUpdate
		}
		rows = append(rows, row)
	}
	SortRows(rows)
	return rows, excluded
}

// SortRows orders rows by owner count descending, then by lower-cased
// name. Ties keep the numeric id order for stable output.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Owners != rows[j].Owners {
			return rows[i].Owners > rows[j].Owners
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})
}

func typeCounts(enriched map[string]*enrichment) map[catalog.Kind]int {
	out := make(map[catalog.Kind]int)
	for _, e := range enriched {
		k := e.meta.Kind
		if k == "" {
			k = catalog.KindUnknown
		}
		out[k]++
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
