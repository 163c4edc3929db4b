// Package chunker splits raw text into bounded, overlapping segments for
// embedding and indexing.
//
// Splitting is sentence-first: text is broken on a simple ". " delimiter
// heuristic, then sentences are greedily packed into chunks up to a token
// budget. Closed chunks seed the next chunk with trailing characters
// approximating the configured token overlap, preserving local context
// across chunk boundaries.
package chunker
