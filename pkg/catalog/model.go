package catalog

import "strings"

// Kind is the item type reported by the store.
type Kind string

const (
	KindGame     Kind = "game"
	KindDLC      Kind = "dlc"
	KindSoftware Kind = "software"
	KindTool     Kind = "tool"
	KindVideo    Kind = "video"
	KindUnknown  Kind = "unknown"
)

// ParseKind lower-cases s. Values the store reports beyond the known kinds
// (music, demo, ...) are kept verbatim; blank input is [KindUnknown].
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindUnknown
	}
	return Kind(s)
}

// Metadata is what the store knows about an item. nil pointers mean the
// value could not be determined.
type Metadata struct {
	ItemID        string   `json:"appid"`
	Kind          Kind     `json:"kind,omitempty"`
	ReleaseYear   *int     `json:"release_year,omitempty"`
	InstallSizeGB *float64 `json:"install_size_gb,omitempty"`
	Delisted      *bool    `json:"delisted,omitempty"`
}

// IsDelisted reports whether the store page said the item is no longer
// available. Unknown availability counts as listed.
func (m Metadata) IsDelisted() bool {
	return m.Delisted != nil && *m.Delisted
}

// NoReviews is the description used when neither review window has data.
const NoReviews = "No reviews"

// ReviewSummary is the review outcome for one item. PercentPositive is nil
// when no window had any reviews, which is different from 0%.
type ReviewSummary struct {
	Description     string   `json:"description"`
	PercentPositive *float64 `json:"percent_positive,omitempty"`
}

// EmptyReviews returns the summary used when nothing is known.
func EmptyReviews() ReviewSummary {
	return ReviewSummary{Description: NoReviews}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
