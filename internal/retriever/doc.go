// Package retriever performs semantic search over the vector index: it embeds
// a query, searches the active collection, and returns ranked passages.
//
// Retrieval is deliberately lossy on failure. An embedding or search error
// degrades to an empty result instead of propagating, so callers on the reply
// path fall back to an ungrounded answer rather than crashing.
package retriever
