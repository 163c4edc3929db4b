// Package cache provides a content-addressed embedding cache.
//
// Keys are derived from a hash of the exact text plus provider and model
// identity, so two provider configurations never collide. The cache is
// advisory: read or write failures degrade to a miss and must never fail
// the embedding request.
package cache
