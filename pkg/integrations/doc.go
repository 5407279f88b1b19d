// Package integrations provides HTTP clients for the Steam endpoints the
// aggregator reads.
//
// # Overview
//
// Each logical upstream has its own subpackage, bound to one throttle host
// class:
//
//   - [community]: steamcommunity.com profile XML, games feed and games page
//   - [store]: store.steampowered.com appdetails, store pages and review summaries
//   - [news]: api.steampowered.com news feed
//
// # Shared Infrastructure
//
// The [Client] type carries what every upstream needs: browser-like headers,
// age-gate cookies, per-host pacing through [httputil.Throttle], retries for
// transient failures and an optional response cache. A [Transport] holds the
// pieces shared by all clients of one run:
//
//	t := integrations.NewTransport()
//	t.Throttle.Configure(httputil.FastDelays, httputil.FastJitter)
//	store := store.NewClient(t)
//	community := community.NewClient(t)
//
// Clients take a base URL override so tests can point them at an
// httptest.Server.
//
// [community]: github.com/matzehuels/steamfam/pkg/integrations/community
// [store]: github.com/matzehuels/steamfam/pkg/integrations/store
// [news]: github.com/matzehuels/steamfam/pkg/integrations/news
// [httputil.Throttle]: github.com/matzehuels/steamfam/pkg/httputil.Throttle
package integrations
