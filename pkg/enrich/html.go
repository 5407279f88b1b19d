package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/steamfam/pkg/catalog"
)

// kindHint maps a page phrase to a kind. Hints are checked in order and
// only meant to mark an item as non-game on strong evidence.
type kindHint struct {
	kind catalog.Kind
	re   *regexp.Regexp
}

var kindHints = []kindHint{
	{catalog.KindDLC, regexp.MustCompile(`(?i)(Downloadable\s+Content|Requires\s+the\s+base\s+game|DLC\b)`)},
	{catalog.KindSoftware, regexp.MustCompile(`(?i)\bSoftware\b`)},
	{catalog.KindTool, regexp.MustCompile(`(?i)\bTool\b`)},
	{catalog.KindVideo, regexp.MustCompile(`(?i)\bVideo\b|\bMovie\b`)},
}

// KindFromPage guesses the kind of a store page, defaulting to game.
func KindFromPage(html string) catalog.Kind {
	for _, h := range kindHints {
		if h.re.MatchString(html) {
			return h.kind
		}
	}
	return catalog.KindGame
}

var (
	releaseBlockRE = regexp.MustCompile(`(?is)<div[^>]*class="release_date"[^>]*>.*?<div[^>]*class="date"[^>]*>\s*([^<]+)\s*<`)
	sysReqRE       = regexp.MustCompile(`(?is)(<div[^>]+id=\\?"game_area_sys_req\\?".*?</div>)`)
	yearRE         = regexp.MustCompile(`(\d{4})`)
)

var delistedRE = regexp.MustCompile(`(?i)(is\s+no\s+longer\s+available\s+on\s+the\s+Steam\s+store` +
	`|no\s+longer\s+available\s+for\s+purchase` +
	`|at\s+the\s+request\s+of\s+the\s+publisher.*no\s+longer\s+available` +
	`|this\s+item\s+is\s+currently\s+unavailable\s+on\s+Steam)`)

// ExtractYear returns the first four-digit number in s when it falls in
// 1970..2100.
func ExtractYear(s string) (int, bool) {
	m := yearRE.FindString(s)
	if m == "" {
		return 0, false
	}
	y, _ := strconv.Atoi(m)
	if y < 1970 || y > 2100 {
		return 0, false
	}
	return y, true
}

// ReleaseYearFromPage reads the release year from the page's release date
// block.
func ReleaseYearFromPage(html string) (int, bool) {
	m := releaseBlockRE.FindStringSubmatch(html)
	if m == nil {
		return 0, false
	}
	return ExtractYear(strings.TrimSpace(m[1]))
}

// SysReqSection returns the system requirements block of a store page, or
// the whole page when the block cannot be isolated.
func SysReqSection(html string) string {
	if m := sysReqRE.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return html
}

// IsDelistedPage reports whether a store page says the item can no longer
// be bought.
func IsDelistedPage(html string) bool {
	return delistedRE.MatchString(html)
}
