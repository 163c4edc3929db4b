package ocr

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoPages indicates an extract call with no page images.
var ErrNoPages = errors.New("no pages to extract")

// ProgressFunc reports extraction progress. done counts completed pages.
type ProgressFunc func(done, total int)

// Config holds batch extraction settings.
type Config struct {
	// MaxWorkers bounds parallel OCR inside one batch. Default: 4.
	MaxWorkers int
	// PageTimeout applies to a single page's recognition. Default: 30s.
	PageTimeout time.Duration
	// BatchTimeout applies to one whole batch. Default: 2m.
	BatchTimeout time.Duration
	// ProgressEveryPages is the progress callback cadence. Default: 1.
	ProgressEveryPages int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 2 * time.Minute
	}
	if c.ProgressEveryPages <= 0 {
		c.ProgressEveryPages = 1
	}
}

// BatchSize picks a batch size from the page count. Small documents are
// processed as a single batch; larger ones are split into batches of 2-8
// pages to bound peak memory.
func BatchSize(totalPages int) int {
	switch {
	case totalPages <= 0:
		return 0
	case totalPages <= 5:
		return totalPages
	case totalPages <= 20:
		return min(4, totalPages/2)
	case totalPages <= 50:
		return min(6, totalPages/4)
	default:
		return min(8, totalPages/6)
	}
}

// BatchExtractor runs OCR over page images batch by batch.
type BatchExtractor struct {
	factory EngineFactory
	config  Config
	logger  *zap.Logger
}

// NewBatchExtractor creates a BatchExtractor.
func NewBatchExtractor(factory EngineFactory, config Config, logger *zap.Logger) *BatchExtractor {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchExtractor{factory: factory, config: config, logger: logger}
}

// Extract recognizes every page and returns the concatenated text in page
// order. A failed page contributes empty text; extraction only errors when no
// pages were given or no engine could be created at all.
//
// Page buffers are released as their pages complete, and a GC sweep runs
// after each batch.
func (e *BatchExtractor) Extract(ctx context.Context, pages [][]byte, progress ProgressFunc) (string, error) {
	total := len(pages)
	if total == 0 {
		return "", ErrNoPages
	}

	batchSize := BatchSize(total)
	texts := make([]string, total)
	done := 0
	lastReported := 0

	e.logger.Info("starting ocr extraction",
		zap.Int("pages", total),
		zap.Int("batch_size", batchSize))

	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)

		batchCtx, cancel := context.WithTimeout(ctx, e.config.BatchTimeout)
		err := e.processBatch(batchCtx, pages, texts, start, end)
		cancel()
		if err != nil {
			return "", err
		}

		done = end
		if progress != nil && (done-lastReported >= e.config.ProgressEveryPages || done == total) {
			progress(done, total)
			lastReported = done
		}

		// Page buffers are nil by now; reclaim them before the next batch.
		runtime.GC()
	}

	return strings.Join(texts, "\n"), nil
}

// processBatch runs pages [start, end) on a bounded worker pool. Each worker
// owns one engine; an engine abandoned on timeout is replaced.
func (e *BatchExtractor) processBatch(ctx context.Context, pages [][]byte, texts []string, start, end int) error {
	workers := min(e.config.MaxWorkers, end-start)

	jobs := make(chan int, end-start)
	for i := start; i < end; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	engineErrs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			engine, err := e.factory()
			if err != nil {
				engineErrs <- fmt.Errorf("creating ocr engine: %w", err)
				return
			}
			defer func() {
				if engine != nil {
					engine.Close()
				}
			}()

			for i := range jobs {
				text, ok := e.recognizePage(ctx, engine, pages[i], i)
				if !ok {
					// The abandoned engine is still mid-recognition and its
					// goroutine will close it; the worker needs a fresh one.
					engine, err = e.factory()
					if err != nil {
						engineErrs <- fmt.Errorf("replacing ocr engine: %w", err)
						return
					}
				}
				texts[i] = text
				pages[i] = nil
			}
		}()
	}

	wg.Wait()
	close(engineErrs)

	// Worker startup failures matter only if every worker died.
	var errs []error
	for err := range engineErrs {
		errs = append(errs, err)
	}
	if len(errs) == workers && workers > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// recognizePage runs one page with the per-page timeout. It returns the text
// (empty on failure) and whether the engine is still safe to reuse. On a
// timeout the engine is abandoned to the recognition goroutine, which closes
// it once the blocking call returns; the caller must not touch it again.
func (e *BatchExtractor) recognizePage(ctx context.Context, engine Engine, image []byte, pageIndex int) (string, bool) {
	pageCtx, cancel := context.WithTimeout(ctx, e.config.PageTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := engine.Recognize(pageCtx, image)
		ch <- outcome{text, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			e.logger.Warn("page ocr failed, continuing with empty text",
				zap.Int("page", pageIndex),
				zap.Error(res.err))
			return "", true
		}
		return res.text, true
	case <-pageCtx.Done():
		e.logger.Warn("page ocr timed out, continuing with empty text",
			zap.Int("page", pageIndex),
			zap.Duration("timeout", e.config.PageTimeout))
		go func() {
			<-ch
			engine.Close()
		}()
		return "", false
	}
}
