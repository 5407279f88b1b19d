package enrich

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/integrations/store"
)

// StoreSource is the store surface the metadata enricher reads.
// *store.Client implements it.
type StoreSource interface {
	AppDetails(ctx context.Context, id string) (*store.AppDetails, error)
	AppPage(ctx context.Context, id string) (string, error)
}

// MetadataEnricher resolves kind, release year, install size and
// availability for items.
type MetadataEnricher struct {
	store  StoreSource
	logger *log.Logger

	// NeedSize makes a missing install size a reason to fetch the store
	// page. Availability always is, since only the page reports it.
	NeedSize bool
}

// NewMetadataEnricher creates a MetadataEnricher with NeedSize enabled.
func NewMetadataEnricher(s StoreSource, logger *log.Logger) *MetadataEnricher {
	if logger == nil {
		logger = discardLogger()
	}
	return &MetadataEnricher{store: s, logger: logger, NeedSize: true}
}

// Resolve fills metadata for id from appdetails first and the store page
// second. A field set from appdetails is never overwritten by the page.
func (e *MetadataEnricher) Resolve(ctx context.Context, id string) catalog.Metadata {
	md := catalog.Metadata{ItemID: id}
	e.fromDetails(ctx, &md)
	if ctx.Err() != nil {
		return md
	}
	// Availability is only reported by the page, so it is always fetched.
	e.fromPage(ctx, &md)
	return md
}

func (e *MetadataEnricher) fromDetails(ctx context.Context, md *catalog.Metadata) {
	d, err := e.store.AppDetails(ctx, md.ItemID)
	if err != nil {
		e.logger.Debug("appdetails failed", "appid", md.ItemID, "err", err)
		return
	}
	if !d.Success {
		e.logger.Debug("appdetails unsuccessful", "appid", md.ItemID)
		return
	}
	if t := strings.TrimSpace(d.Type); t != "" {
		md.Kind = catalog.ParseKind(t)
	}
	if !d.ReleaseDate.ComingSoon {
		if y, ok := ExtractYear(d.ReleaseDate.Date); ok {
			md.ReleaseYear = catalog.Ptr(y)
		}
	}
	if size, ok := maxSize(d.PCRequirements.Minimum, d.PCRequirements.Recommended); ok {
		md.InstallSizeGB = catalog.Ptr(size)
	}
}

func (e *MetadataEnricher) fromPage(ctx context.Context, md *catalog.Metadata) {
	html, err := e.store.AppPage(ctx, md.ItemID)
	if err != nil {
		e.logger.Debug("store page failed", "appid", md.ItemID, "err", err)
		return
	}
	if md.Kind == "" {
		md.Kind = KindFromPage(html)
	}
	if md.ReleaseYear == nil {
		if y, ok := ReleaseYearFromPage(html); ok {
			md.ReleaseYear = catalog.Ptr(y)
		}
	}
	if md.InstallSizeGB == nil && e.NeedSize {
		if size, ok := ParseSizeGB(SysReqSection(html)); ok {
			md.InstallSizeGB = catalog.Ptr(size)
		}
	}
	if md.Delisted == nil {
		md.Delisted = catalog.Ptr(IsDelistedPage(html))
	}
}

func maxSize(fragments ...string) (float64, bool) {
	best, found := 0.0, false
	for _, f := range fragments {
		if v, ok := ParseSizeGB(f); ok && (!found || v > best) {
			best, found = v, true
		}
	}
	return best, found
}
