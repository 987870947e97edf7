// Package metrics provides application-level counters using stdlib expvar.
// The HTTP API exposes them on /debug/vars.
package metrics

import "expvar"

// Operation counters.
var (
	AsksTotal        = expvar.NewInt("sage_asks_total")
	RetrievalsTotal  = expvar.NewInt("sage_retrievals_total")
	ChunksIngested   = expvar.NewInt("sage_chunks_ingested_total")
	DedupSkipped     = expvar.NewInt("sage_dedup_skipped_total")
	CompletionRetry  = expvar.NewInt("sage_completion_retries_total")
	TruncationEvents = expvar.NewInt("sage_truncation_events_total")
)

// IncAsks records one advice request.
func IncAsks() { AsksTotal.Add(1) }

// IncRetrievals records one retrieval pass.
func IncRetrievals() { RetrievalsTotal.Add(1) }

// IncChunksIngested records one chunk written to the knowledge store.
func IncChunksIngested() { ChunksIngested.Add(1) }

// IncDedupSkips records one chunk skipped as already indexed.
func IncDedupSkips() { DedupSkipped.Add(1) }

// IncCompletionRetries records one retried completion attempt.
func IncCompletionRetries() { CompletionRetry.Add(1) }

// IncTruncations records one context assembly that had to drop content.
func IncTruncations() { TruncationEvents.Add(1) }
