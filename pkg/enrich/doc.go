// Package enrich resolves per-item metadata from the store and news
// endpoints.
//
// Three enrichers run per item:
//
//   - [MetadataEnricher]: kind, release year, install size and availability,
//     from the appdetails endpoint with the store page as fallback.
//   - [ReviewEnricher]: review description and percent positive, from the
//     recent review window with the all-time summary as fallback.
//   - [RecencyEnricher]: year of the latest update-like news entry.
//
// Enrichers never fail the item: a request or parse failure leaves the
// affected field absent and is logged at debug level.
package enrich

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
)

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
