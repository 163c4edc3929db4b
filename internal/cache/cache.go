package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Store is a key-value store for embedding vectors.
//
// Implementations must treat all failures as advisory: Get reports a miss
// and Put is a no-op when the backing service is unavailable.
type Store interface {
	// Get returns the cached vector for key, or ok=false on miss.
	Get(ctx context.Context, key string) (vector []float32, ok bool)

	// Put stores the vector under key. Expiry is governed by the store's
	// configured TTL.
	Put(ctx context.Context, key string, vector []float32)
}

// Key derives the cache key for text embedded under a specific provider and
// model. The provider/model prefix namespaces the content hash so switching
// configurations never returns a vector of the wrong dimensionality.
func Key(provider, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb.%s.%s.%s", provider, model, hex.EncodeToString(sum[:]))
}

// encodeVector serializes a vector as little-endian float32 bits.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a vector; returns nil on malformed input.
func decodeVector(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector
}

// Noop is a Store that caches nothing. Used when caching is disabled.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) ([]float32, bool) { return nil, false }

// Put discards the vector.
func (Noop) Put(context.Context, string, []float32) {}

var _ Store = Noop{}
