package accounts

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/catalog"
)

// VanityResolver looks up the SteamID64 behind a custom profile name.
// *community.Client implements it.
type VanityResolver interface {
	ResolveVanity(ctx context.Context, vanity string) (string, error)
}

var profilePathRE = regexp.MustCompile(`^/(id|profiles)/([^/]+)/?`)

// Resolver normalizes free-form account identifiers to SteamID64s.
type Resolver struct {
	vanity VanityResolver
	logger *log.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(vanity VanityResolver, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = discardLogger()
	}
	return &Resolver{vanity: vanity, logger: logger}
}

// Resolve returns the canonical id for s.
//
// All-digit input is returned unchanged. A community URL with a
// /profiles/<digits> path yields the digits. A /id/<vanity> path costs one
// throttled lookup. Anything else, including a failed lookup, reports
// ok=false.
func (r *Resolver) Resolve(ctx context.Context, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if isDigits(s) {
		return s, true
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || !strings.Contains(u.Host, "steamcommunity.com") {
		return "", false
	}
	m := profilePathRE.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	kind, ident := m[1], m[2]
	if kind == "profiles" {
		if isDigits(ident) {
			return ident, true
		}
		return "", false
	}
	if r.vanity == nil {
		return "", false
	}
	id, err := r.vanity.ResolveVanity(ctx, ident)
	if err != nil {
		r.logger.Debug("vanity lookup failed", "vanity", ident, "err", err)
		return "", false
	}
	return id, true
}

// ResolveAll resolves entries in order. Unresolvable entries are logged and
// skipped; a repeated id keeps the first label seen.
func (r *Resolver) ResolveAll(ctx context.Context, entries []Entry) []catalog.AccountRef {
	seen := make(map[string]struct{}, len(entries))
	out := make([]catalog.AccountRef, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		id, ok := r.Resolve(ctx, e.Identifier)
		if !ok {
			r.logger.Warn("could not resolve SteamID, skipping", "line", e.Line, "label", e.Label, "identifier", e.Identifier)
			continue
		}
		if _, dup := seen[id]; dup {
			r.logger.Debug("duplicate account", "line", e.Line, "label", e.Label, "id", id)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, catalog.AccountRef{Label: e.Label, ID: id})
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
