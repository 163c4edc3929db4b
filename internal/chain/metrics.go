package chain

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/chain"

// Metrics holds answer pipeline instruments.
type Metrics struct {
	answers      metric.Int64Counter
	retrievalMS  metric.Int64Histogram
	generationMS metric.Int64Histogram
	totalMS      metric.Int64Histogram
	tokens       metric.Int64Histogram
}

// NewMetrics creates chain metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{}
	meter := otel.Meter(instrumentationName)

	var err error
	m.answers, err = meter.Int64Counter(
		"ragd.chain.answers_total",
		metric.WithDescription("Answers produced, labeled by status (ok, degraded, failed)"),
	)
	if err != nil {
		logger.Warn("failed to create answer counter", zap.Error(err))
	}

	m.retrievalMS, err = meter.Int64Histogram(
		"ragd.chain.retrieval_duration_ms",
		metric.WithDescription("Retrieval step latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create retrieval histogram", zap.Error(err))
	}

	m.generationMS, err = meter.Int64Histogram(
		"ragd.chain.generation_duration_ms",
		metric.WithDescription("Generation step latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create generation histogram", zap.Error(err))
	}

	m.totalMS, err = meter.Int64Histogram(
		"ragd.chain.total_duration_ms",
		metric.WithDescription("End-to-end answer latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create total histogram", zap.Error(err))
	}

	m.tokens, err = meter.Int64Histogram(
		"ragd.chain.tokens_total",
		metric.WithDescription("Tokens consumed per answer"),
	)
	if err != nil {
		logger.Warn("failed to create token histogram", zap.Error(err))
	}

	return m
}

func (m *Metrics) record(ctx context.Context, answer *Answer) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", string(answer.Status)))
	if m.answers != nil {
		m.answers.Add(ctx, 1, attrs)
	}
	if m.retrievalMS != nil {
		m.retrievalMS.Record(ctx, answer.RetrievalMS, attrs)
	}
	if m.generationMS != nil {
		m.generationMS.Record(ctx, answer.GenerationMS, attrs)
	}
	if m.totalMS != nil {
		m.totalMS.Record(ctx, answer.TotalMS, attrs)
	}
	if m.tokens != nil {
		m.tokens.Record(ctx, int64(answer.TotalTokens), attrs)
	}
}
