// Package catalog holds the data model shared by the fetch, enrichment and
// export stages, and the cross-account aggregation of owned items.
package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// AccountRef is one account from the input list. ID is the canonical
// SteamID64.
type AccountRef struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// LibraryItem is one owned item as reported by a single account's library.
type LibraryItem struct {
	ID    string  `json:"appid"`
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// Item is an owned item aggregated across accounts.
type Item struct {
	ID     string
	Name   string
	Owners map[string]struct{}
	Hours  float64
}

// OwnerCount returns the number of distinct accounts owning the item.
func (it *Item) OwnerCount() int { return len(it.Owners) }

// Catalog is the de-duplicated set of items across accounts. It is built
// single-threaded and read-only afterwards; concurrent reads are safe once
// merging has finished.
type Catalog struct {
	items map[string]*Item
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{items: make(map[string]*Item)}
}

// Merge folds one account's library into the catalog. Missing items are
// created with the first name seen, accountID joins each item's owner set,
// and hours are added.
//
// Merging the same account twice adds its hours twice while the owner set
// stays the same; callers merge each account exactly once.
func (c *Catalog) Merge(accountID string, items []LibraryItem) {
	for _, li := range items {
		it, ok := c.items[li.ID]
		if !ok {
			it = &Item{ID: li.ID, Name: li.Name, Owners: make(map[string]struct{})}
			c.items[li.ID] = it
		}
		it.Owners[accountID] = struct{}{}
		it.Hours += li.Hours
	}
}

// Len returns the number of distinct items.
func (c *Catalog) Len() int { return len(c.items) }

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// IDs returns all item ids in ascending numeric order. Non-numeric ids sort
// after numeric ones, lexically.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids
}

// Items returns all items in [Catalog.IDs] order.
func (c *Catalog) Items() []*Item {
	ids := c.IDs()
	out := make([]*Item, len(ids))
	for i, id := range ids {
		out[i] = c.items[id]
	}
	return out
}

func lessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return strings.Compare(a, b) < 0
	}
}
