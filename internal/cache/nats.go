package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig holds configuration for the JetStream-backed cache.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string

	// Bucket is the KeyValue bucket name.
	Bucket string

	// TTL is the bucket-level expiry for cached entries. Defaults to one
	// hour when zero.
	TTL time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *NATSConfig) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Bucket == "" {
		c.Bucket = "ragd_embeddings"
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
}

// NATSStore caches embeddings in a NATS JetStream KeyValue bucket.
//
// Connection is lazy: construction never fails on an unreachable server,
// and every operation degrades to a miss while the server stays down.
type NATSStore struct {
	config NATSConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *nats.Conn
	kv   nats.KeyValue
}

// NewNATSStore creates a cache backed by NATS JetStream.
func NewNATSStore(cfg NATSConfig, logger *zap.Logger) *NATSStore {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSStore{config: cfg, logger: logger}
}

// bucket returns the KeyValue handle, connecting and creating the bucket on
// first use.
func (s *NATSStore) bucket() (nats.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv != nil && s.conn != nil && s.conn.IsConnected() {
		return s.kv, nil
	}

	if s.conn == nil || s.conn.IsClosed() {
		conn, err := nats.Connect(s.config.URL,
			nats.Timeout(2*time.Second),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		s.conn = conn
		s.kv = nil
	}

	if s.kv == nil {
		js, err := s.conn.JetStream()
		if err != nil {
			return nil, fmt.Errorf("jetstream context: %w", err)
		}
		kv, err := js.KeyValue(s.config.Bucket)
		if errors.Is(err, nats.ErrBucketNotFound) {
			kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
				Bucket: s.config.Bucket,
				TTL:    s.config.TTL,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("opening bucket %s: %w", s.config.Bucket, err)
		}
		s.kv = kv
	}
	return s.kv, nil
}

// Get returns the cached vector for key. Any infrastructure error is logged
// and reported as a miss.
func (s *NATSStore) Get(ctx context.Context, key string) ([]float32, bool) {
	kv, err := s.bucket()
	if err != nil {
		s.logger.Debug("embedding cache unavailable", zap.Error(err))
		return nil, false
	}

	entry, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, nats.ErrKeyNotFound) {
			s.logger.Debug("embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}

	vector := decodeVector(entry.Value())
	if vector == nil {
		s.logger.Warn("discarding malformed cache entry", zap.String("key", key))
		return nil, false
	}
	return vector, true
}

// Put stores the vector under key. Failures are logged and ignored.
func (s *NATSStore) Put(ctx context.Context, key string, vector []float32) {
	kv, err := s.bucket()
	if err != nil {
		s.logger.Debug("embedding cache unavailable", zap.Error(err))
		return
	}
	if _, err := kv.Put(key, encodeVector(vector)); err != nil {
		s.logger.Debug("embedding cache write failed", zap.Error(err))
	}
}

// Close releases the NATS connection.
func (s *NATSStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.kv = nil
	}
}

var _ Store = (*NATSStore)(nil)
