package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/cache"
	"github.com/fyrsmithlabs/ragd/internal/chain"
	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/extract"
	"github.com/fyrsmithlabs/ragd/internal/generation"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	"github.com/fyrsmithlabs/ragd/internal/logging"
	"github.com/fyrsmithlabs/ragd/internal/ocr"
	"github.com/fyrsmithlabs/ragd/internal/repository"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
	"github.com/fyrsmithlabs/ragd/internal/telemetry"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// app wires the configured components for one CLI invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	repo      *repository.Repository
	store     *vectorstore.QdrantStore
	embedder  embeddings.Provider
	pipeline  *ingest.Pipeline
}

// newApp loads configuration and constructs the ingestion-side components.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := logging.NewBridgedLogger(cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var cacheStore cache.Store = cache.Noop{}
	if cfg.Cache.Enabled {
		cacheStore = cache.NewNATSStore(cache.NATSConfig{
			URL:    cfg.Cache.URL,
			Bucket: cfg.Cache.Bucket,
			TTL:    cfg.Cache.TTL,
		}, logger)
	}

	provider, err := embeddings.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	limited := embeddings.NewRateLimited(provider,
		cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	embedder := embeddings.NewCached(limited, cacheStore, embeddings.NewMetrics(logger))

	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		APIKey:         cfg.Qdrant.APIKey,
		UseTLS:         cfg.Qdrant.UseTLS,
		CollectionName: cfg.CollectionName(),
		VectorSize:     cfg.VectorSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	repo, err := repository.New(cfg.Ingest.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	batch := ocr.NewBatchExtractor(
		ocr.NewTesseractFactory(cfg.OCR.Languages),
		ocr.Config{
			MaxWorkers:         cfg.OCR.MaxWorkers,
			PageTimeout:        cfg.OCR.PageTimeout,
			BatchTimeout:       cfg.OCR.BatchTimeout,
			ProgressEveryPages: cfg.OCR.ProgressEveryPage,
		}, logger)
	extractor := extract.New(batch, cfg.Ingest.ScannedTextThreshold, cfg.OCR.DPI, logger)

	pipeline := ingest.NewPipeline(repo, extractor,
		chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, nil),
		embedder, store, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		repo:      repo,
		store:     store,
		embedder:  embedder,
		pipeline:  pipeline,
	}, nil
}

// newChain constructs the query-side orchestrator on demand.
func (a *app) newChain(ctx context.Context) (*chain.Chain, error) {
	generator, err := generation.NewProvider(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating generation provider: %w", err)
	}
	generator = generation.NewRateLimited(generator,
		a.cfg.RateLimit.RequestsPerSecond, a.cfg.RateLimit.Burst)
	r := retriever.New(a.embedder, a.store,
		a.cfg.Retrieval.TopK, a.cfg.Retrieval.MinScore, a.logger)
	return chain.New(r, generator, a.logger), nil
}

// Close releases all resources.
func (a *app) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(shutdownCtx))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
