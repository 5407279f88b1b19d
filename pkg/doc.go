// Package pkg provides the core libraries for steamfam.
//
// # Overview
//
// steamfam combines the owned-game libraries of several Steam accounts into
// one table. The pkg directory is organized into these areas:
//
//  1. [accounts] - Account list parsing and SteamID resolution
//  2. [library] - Per-account library fetching (XML feed, HTML fallback)
//  3. [catalog] - The aggregated item catalog and its value types
//  4. [enrich] - Store metadata, review summaries and update recency
//  5. [pipeline] - Orchestration (resolve → fetch → enrich → rows)
//  6. [export] - CSV, JSON, SQLite and MongoDB sinks
//
// Supporting packages:
//
//   - [integrations] - Steam community, store and news clients over a
//     shared throttled transport
//   - [httputil] - Per-host request spacing and retry policies
//   - [cache] - Optional HTTP response cache (file or Redis)
//   - [observability] - Pipeline and HTTP hooks
//   - [errors] - Coded errors mapped to exit and status codes
//   - [buildinfo] - Version information
//
// # Architecture
//
// The typical data flow through steamfam:
//
//	ids file (Label: identifier)
//	         ↓
//	    [accounts] (resolve SteamID64s)
//	         ↓
//	    [library] (fetch each account's games)
//	         ↓
//	    [catalog] (merge by app id, count owners, sum hours)
//	         ↓
//	    [enrich] (metadata, reviews, last update year)
//	         ↓
//	    [export] (CSV / JSON / SQLite / MongoDB)
//
// # Quick Start
//
//	entries, err := accounts.ParseFile("ids.txt", logger)
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(integrations.NewTransport(), logger)
//	res, err := runner.Execute(ctx, entries, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	sink := export.NewCSVSink(export.DefaultFileName(time.Now(), "csv"))
//	defer sink.Close()
//	return sink.Write(ctx, res)
package pkg
