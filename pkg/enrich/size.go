package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

var tagRE = regexp.MustCompile(`<[^>]+>`)

// StripTags replaces every HTML tag in s with a space.
func StripTags(s string) string {
	return tagRE.ReplaceAllString(s, " ")
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Storage[^:]*:\s*([0-9]+(?:\.[0-9]+)?)\s*(TB|GB|GiB|MB)`),
	regexp.MustCompile(`(?i)(?:Disk|Hard)\s*Space[^:]*:\s*([0-9]+(?:\.[0-9]+)?)\s*(TB|GB|GiB|MB)`),
	regexp.MustCompile(`(?i)free\s+space[^:]*:\s*([0-9]+(?:\.[0-9]+)?)\s*(TB|GB|GiB|MB)`),
}

// ParseSizeGB finds storage requirements in an HTML or text fragment and
// returns the largest one in GB, rounded to two decimals. MB values are
// divided by 1024 and TB values multiplied by 1024; GB and GiB are taken
// as-is. Zero sizes are treated as not found.
func ParseSizeGB(html string) (float64, bool) {
	text := StripTags(html)
	best, found := 0.0, false
	for _, re := range sizePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			v = ToGB(v, m[2])
			if !found || v > best {
				best, found = v, true
			}
		}
	}
	if !found || best <= 0 {
		return 0, false
	}
	return best, true
}

// ToGB converts v in unit (MB, GB, GiB or TB, any case) to GB rounded to
// two decimals. Unknown units are treated as GB.
func ToGB(v float64, unit string) float64 {
	switch strings.ToUpper(unit) {
	case "MB":
		return round2(v / 1024)
	case "TB":
		return round2(v * 1024)
	default:
		return round2(v)
	}
}
