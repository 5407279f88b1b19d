package library

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/matzehuels/steamfam/pkg/catalog"
)

// =============================================================================
// XML games feed
// =============================================================================

// nodeStrategy locates game elements in a feed document. Strategies are
// tried in order; the first one that finds any element wins.
type nodeStrategy struct {
	name string
	path string
}

var nodeStrategies = []nodeStrategy{
	{"gamesList", ".//gamesList/games/game"},
	{"games", ".//games/game"},
	{"any", ".//game"},
}

var (
	feedIDFields   = []string{"appID", "appId", "appId64"}
	feedNameFields = []string{"name"}
)

// ParseFeed extracts owned items from the XML games feed. Elements without
// an id or a name are dropped. An unparsable document is an error; a
// document without games is not.
func ParseFeed(body []byte) ([]catalog.LibraryItem, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse games feed: %w", err)
	}

	var nodes []*etree.Element
	for _, s := range nodeStrategies {
		if nodes = doc.FindElements(s.path); len(nodes) > 0 {
			break
		}
	}

	items := make([]catalog.LibraryItem, 0, len(nodes))
	for _, n := range nodes {
		id := firstChildText(n, feedIDFields)
		name := firstChildText(n, feedNameFields)
		if id == "" || name == "" {
			continue
		}
		items = append(items, catalog.LibraryItem{
			ID:    id,
			Name:  name,
			Hours: ParseHours(childText(n, "hoursOnRecord")),
		})
	}
	return items, nil
}

func childText(el *etree.Element, tag string) string {
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

func firstChildText(el *etree.Element, tags []string) string {
	for _, t := range tags {
		if v := childText(el, t); v != "" {
			return v
		}
	}
	return ""
}

// ParseHours parses a playtime value. Thousands separators are tolerated;
// blank or unparsable input is 0.
func ParseHours(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// =============================================================================
// HTML games page
// =============================================================================

// blobLocator finds the rgGames array literal in a games page.
type blobLocator struct {
	name string
	re   *regexp.Regexp
}

var blobLocators = []blobLocator{
	{"strict", regexp.MustCompile(`(?s)var\s+rgGames\s*=\s*(\[\s*\{.*?\}\s*\])\s*;`)},
	{"loose", regexp.MustCompile(`(?s)rgGames\s*=\s*(\[[^\]]*"appid"[^\]]*\])\s*;`)},
}

var trailingCommaRE = regexp.MustCompile(`,(\s*\])`)

// LocateBlob returns the rgGames array literal embedded in html.
func LocateBlob(html string) (string, bool) {
	for _, l := range blobLocators {
		if m := l.re.FindStringSubmatch(html); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// DecodeBlob parses an rgGames array. When strict JSON parsing fails, one
// repair pass removes a trailing comma before the closing bracket.
func DecodeBlob(blob string) ([]map[string]any, bool) {
	if arr, err := decodeArray(blob); err == nil {
		return arr, true
	}
	repaired := trailingCommaRE.ReplaceAllString(blob, "$1")
	arr, err := decodeArray(repaired)
	if err != nil {
		return nil, false
	}
	return arr, true
}

func decodeArray(s string) ([]map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var arr []map[string]any
	if err := dec.Decode(&arr); err != nil {
		return nil, err
	}
	return arr, nil
}

var (
	blobIDFields   = []string{"appid", "appID"}
	blobNameFields = []string{"name", "friendly_name"}
)

// ParsePage extracts owned items from the games page's rgGames blob. It
// reports false when no blob could be located or decoded.
func ParsePage(html string) ([]catalog.LibraryItem, bool) {
	blob, ok := LocateBlob(html)
	if !ok {
		return nil, false
	}
	arr, ok := DecodeBlob(blob)
	if !ok {
		return nil, false
	}
	items := make([]catalog.LibraryItem, 0, len(arr))
	for _, g := range arr {
		id := firstField(g, blobIDFields)
		name := firstField(g, blobNameFields)
		if id == "" || name == "" {
			continue
		}
		items = append(items, catalog.LibraryItem{
			ID:    id,
			Name:  name,
			Hours: ParseHours(scalarString(g["hours_forever"])),
		})
	}
	return items, true
}

func firstField(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(scalarString(m[k])); v != "" && v != "0" {
			return v
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
