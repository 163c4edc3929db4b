// Package ingest turns documents into searchable vector-index points.
//
// Each document moves through a small state machine, pending -> processing ->
// completed or failed, persisted in the repository. Point ids are derived
// deterministically from document identity and chunk index, so re-indexing
// unchanged content produces the identical id set.
package ingest
