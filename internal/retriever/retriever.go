package retriever

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var tracer = otel.Tracer("ragd.retriever")

// Passage is one retrieved chunk with its relevance score and source
// attribution fields pulled out of the payload.
type Passage struct {
	ID      string
	Title   string
	Content string
	Score   float32
	Payload vectorstore.Payload
}

// Options override the configured retrieval parameters for a single call.
// Zero values mean "use the default".
type Options struct {
	TopK     int
	MinScore float32
	Filters  map[string]interface{}
}

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	embedder embeddings.Provider
	index    vectorstore.Index
	topK     int
	minScore float32
	logger   *zap.Logger
}

// New creates a Retriever with default top-k and minimum score.
func New(embedder embeddings.Provider, index vectorstore.Index, topK int, minScore float32, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve embeds the query, searches the index, and returns passages sorted
// by score descending. Internal errors degrade to an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) []Passage {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()

	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = r.minScore
	}
	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.Float64("min_score", float64(minScore)),
	)

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("query embedding failed, returning no passages",
			zap.String("provider", r.embedder.Name()),
			zap.Error(err))
		return nil
	}

	results, err := r.index.Search(ctx, vector, topK, minScore, opts.Filters)
	if err != nil {
		r.logger.Error("vector search failed, returning no passages", zap.Error(err))
		return nil
	}

	// The index should return results ordered already; re-sort defensively.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	passages := make([]Passage, len(results))
	for i, res := range results {
		passages[i] = Passage{
			ID:      res.ID,
			Title:   payloadString(res.Payload, "title", "Untitled"),
			Content: payloadString(res.Payload, "content", ""),
			Score:   res.Score,
			Payload: res.Payload,
		}
	}

	span.SetAttributes(attribute.Int("passage_count", len(passages)))
	r.logger.Debug("retrieved passages",
		zap.Int("count", len(passages)),
		zap.Int("top_k", topK))
	return passages
}

// RetrieveAsync runs Retrieve in a goroutine and delivers the result on the
// returned channel, which is closed after the single send.
func (r *Retriever) RetrieveAsync(ctx context.Context, query string, opts Options) <-chan []Passage {
	out := make(chan []Passage, 1)
	go func() {
		defer close(out)
		out <- r.Retrieve(ctx, query, opts)
	}()
	return out
}

func payloadString(payload vectorstore.Payload, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	if v, ok := payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
