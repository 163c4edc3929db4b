package ingest

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull indicates the submission queue is at capacity.
	ErrQueueFull = errors.New("ingestion queue full")

	// ErrQueueClosed indicates a submit after Close.
	ErrQueueClosed = errors.New("ingestion queue closed")
)

// Queue runs ingestions in the background on a bounded worker pool.
//
// Submission is fire-and-forget: the caller must have created the document's
// pending record before submitting, so a crash between submission and
// execution leaves an observable pending row instead of losing the work.
type Queue struct {
	pipeline *Pipeline
	jobs     chan string
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a Queue and starts its workers.
func NewQueue(pipeline *Pipeline, workers, depth int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		pipeline: pipeline,
		jobs:     make(chan string, depth),
		logger:   logger,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues a document for background ingestion. It never blocks; a
// full queue is reported to the caller instead.
func (q *Queue) Submit(documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- documentID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting submissions and waits for in-flight ingestions.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for documentID := range q.jobs {
		q.run(documentID)
	}
}

// run executes one ingestion. Nothing may escape the task boundary: errors
// are already persisted as failed status, and a panic is contained here.
func (q *Queue) run(documentID string) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("ingestion panicked",
				zap.String("document_id", documentID),
				zap.Any("panic", r))
		}
	}()

	if err := q.pipeline.Ingest(context.Background(), documentID); err != nil {
		q.logger.Warn("background ingestion failed",
			zap.String("document_id", documentID),
			zap.Error(err))
	}
}
