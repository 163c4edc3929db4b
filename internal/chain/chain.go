package chain

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/generation"
	"github.com/fyrsmithlabs/ragd/internal/prompt"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

var tracer = otel.Tracer("ragd.chain")

// apologyText is returned verbatim when the pipeline fails.
const apologyText = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."

// Status describes how an answer was produced.
type Status string

const (
	// StatusOK means the answer is grounded in retrieved passages.
	StatusOK Status = "ok"
	// StatusDegraded means retrieval found nothing and the fallback prompt
	// was used; the answer is not grounded.
	StatusDegraded Status = "degraded"
	// StatusFailed means generation failed and the canned apology was
	// returned.
	StatusFailed Status = "failed"
)

// Query is one user question with optional conversation context.
type Query struct {
	Text    string
	History []generation.Message
	Filters map[string]interface{}
	// ChannelLimit caps each output part's length. Zero uses the default.
	ChannelLimit int
}

// Source attributes one retrieved passage for citation.
type Source struct {
	ID    string
	Title string
	Score float32
}

// Answer is a complete, well-formed pipeline result.
type Answer struct {
	Status Status
	// Text is the full generated answer.
	Text string
	// Parts is Text split to the delivery channel's message limit.
	Parts   []string
	Sources []Source
	Scores  []float32

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	DocsRetrieved    int

	RetrievalMS  int64
	GenerationMS int64
	TotalMS      int64

	// Err is set when Status is StatusFailed.
	Err error
}

// PassageRetriever is the retrieval dependency of the chain.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string, opts retriever.Options) []retriever.Passage
}

// Chain is the RAG orchestrator.
type Chain struct {
	retriever PassageRetriever
	generator generation.Provider
	logger    *zap.Logger
	metrics   *Metrics
}

// New creates a Chain.
func New(r PassageRetriever, g generation.Provider, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		retriever: r,
		generator: g,
		logger:    logger,
		metrics:   NewMetrics(logger),
	}
}

// Answer runs the full pipeline. It never returns an error; failures produce
// a StatusFailed answer carrying the canned apology and the cause in Err.
func (c *Chain) Answer(ctx context.Context, q Query) *Answer {
	ctx, span := tracer.Start(ctx, "Chain.Answer")
	defer span.End()

	start := time.Now()
	query := normalizeQuery(q.Text)

	retrievalStart := time.Now()
	passages := c.retriever.Retrieve(ctx, query, retriever.Options{Filters: q.Filters})
	retrievalMS := time.Since(retrievalStart).Milliseconds()

	span.SetAttributes(attribute.Int("docs_retrieved", len(passages)))

	var messages []generation.Message
	status := StatusOK
	if len(passages) > 0 {
		messages = prompt.BuildMessages(query, passages, q.History)
	} else {
		c.logger.Warn("no passages retrieved, using fallback prompt",
			zap.String("query", truncate(query, 100)))
		messages = prompt.BuildFallbackMessages(query, q.History)
		status = StatusDegraded
	}

	generationStart := time.Now()
	result, err := c.generator.Generate(ctx, messages)
	generationMS := time.Since(generationStart).Milliseconds()

	if err != nil {
		c.logger.Error("generation failed, returning apology",
			zap.String("provider", c.generator.Name()),
			zap.Error(err))
		answer := &Answer{
			Status:  StatusFailed,
			Text:    apologyText,
			Parts:   []string{apologyText},
			TotalMS: time.Since(start).Milliseconds(),
			Err:     err,
		}
		c.metrics.record(ctx, answer)
		return answer
	}

	sources := make([]Source, len(passages))
	scores := make([]float32, len(passages))
	for i, p := range passages {
		sources[i] = Source{ID: p.ID, Title: p.Title, Score: p.Score}
		scores[i] = p.Score
	}

	answer := &Answer{
		Status:           status,
		Text:             result.Text,
		Parts:            generation.FormatForChannel(result.Text, q.ChannelLimit),
		Sources:          sources,
		Scores:           scores,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		DocsRetrieved:    len(passages),
		RetrievalMS:      retrievalMS,
		GenerationMS:     generationMS,
		TotalMS:          time.Since(start).Milliseconds(),
	}

	c.logger.Info("answer complete",
		zap.String("status", string(status)),
		zap.Int("docs_retrieved", answer.DocsRetrieved),
		zap.Int("total_tokens", answer.TotalTokens),
		zap.Int64("retrieval_ms", answer.RetrievalMS),
		zap.Int64("generation_ms", answer.GenerationMS),
		zap.Int64("total_ms", answer.TotalMS))

	c.metrics.record(ctx, answer)
	return answer
}

// AnswerAsync runs Answer in a goroutine and delivers the result on the
// returned channel, which is closed after the single send.
func (c *Chain) AnswerAsync(ctx context.Context, q Query) <-chan *Answer {
	out := make(chan *Answer, 1)
	go func() {
		defer close(out)
		out <- c.Answer(ctx, q)
	}()
	return out
}

// normalizeQuery trims and collapses internal whitespace.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
