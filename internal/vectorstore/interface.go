// Package vectorstore provides similarity-index storage for embedding
// vectors.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPoints indicates empty or nil points.
	ErrEmptyPoints = errors.New("empty or nil points")

	// ErrConnectionFailed indicates the index service is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector index")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Payload is the denormalized metadata stored with each point. It carries
// enough context (document id, title, chunk index, total chunks, content
// type, category) to render a citation without a secondary lookup.
type Payload map[string]interface{}

// Point is one entry in the index: a unique id, its embedding vector, and
// the citation payload.
type Point struct {
	// ID is a UUID string. Ingestion derives it deterministically from
	// document identity and chunk index so re-indexing recreates the same
	// id set.
	ID      string
	Vector  []float32
	Payload Payload
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	ID      string
	Score   float32
	Payload Payload
}

// CollectionStats describes the state of a collection.
type CollectionStats struct {
	Name       string `json:"name"`
	PointCount int    `json:"point_count"`
	VectorSize int    `json:"vector_size"`
	Status     string `json:"status"`
}

// Index is the interface for a named similarity-search collection.
//
// Implementations must tolerate concurrent upserts to different point ids
// and concurrent searches without external locking; read-after-upsert is
// eventually consistent.
type Index interface {
	// EnsureCollection creates the collection if absent. Idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or replaces points by id.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit points nearest to vector, sorted by
	// descending score. Points scoring below scoreThreshold are excluded
	// before truncation, not merely deprioritized. filters is an
	// equality conjunction over payload fields (AND only); nil matches
	// everything.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, filters map[string]interface{}) ([]SearchResult, error)

	// Delete removes points by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Stats returns collection metadata.
	Stats(ctx context.Context) (*CollectionStats, error)

	// HealthCheck is a lightweight metadata call, independent of search.
	HealthCheck(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
