package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process Index using brute-force cosine similarity.
// It backs tests and local development where no Qdrant instance is running.
type MemoryStore struct {
	name       string
	vectorSize int

	mu     sync.RWMutex
	points map[string]Point
}

// NewMemoryStore creates an in-memory index for the given collection name
// and vector size.
func NewMemoryStore(name string, vectorSize int) *MemoryStore {
	return &MemoryStore{
		name:       name,
		vectorSize: vectorSize,
		points:     make(map[string]Point),
	}
}

// EnsureCollection is a no-op for the in-memory store.
func (s *MemoryStore) EnsureCollection(context.Context) error { return nil }

// Upsert inserts or replaces points by id.
func (s *MemoryStore) Upsert(_ context.Context, points []Point) error {
	if len(points) == 0 {
		return ErrEmptyPoints
	}
	for _, p := range points {
		if len(p.Vector) != s.vectorSize {
			return ErrDimensionMismatch
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

// Search scores every point with cosine similarity, drops scores below
// scoreThreshold, and returns the top limit hits sorted descending.
func (s *MemoryStore) Search(_ context.Context, vector []float32, limit int, scoreThreshold float32, filters map[string]interface{}) ([]SearchResult, error) {
	if len(vector) != s.vectorSize {
		return nil, ErrDimensionMismatch
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.points))
	for _, p := range s.points {
		if !matchesFilters(p.Payload, filters) {
			continue
		}
		score := cosineSimilarity(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: p.ID, Score: score, Payload: p.Payload})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes points by id, ignoring unknown ids.
func (s *MemoryStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.points, id)
	}
	return nil
}

// Stats returns collection metadata.
func (s *MemoryStore) Stats(context.Context) (*CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &CollectionStats{
		Name:       s.name,
		PointCount: len(s.points),
		VectorSize: s.vectorSize,
		Status:     "green",
	}, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// matchesFilters applies an equality conjunction over payload fields.
func matchesFilters(payload Payload, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := payload[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cosineSimilarity computes dot(a, b) / (|a| * |b|).
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Index = (*MemoryStore)(nil)
