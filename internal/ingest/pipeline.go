package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/ocr"
	"github.com/fyrsmithlabs/ragd/internal/repository"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var tracer = otel.Tracer("ragd.ingest")

// ErrEmptyDocument indicates extraction produced no text. This is a content
// error: the document is marked failed and not retried.
var ErrEmptyDocument = errors.New("document produced no text")

// pointNamespace is the UUIDv5 namespace for point ids. Fixed forever;
// changing it would orphan every existing point.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("points.ragd.fyrsmithlabs.com"))

// PointID derives the deterministic vector-index point id for one chunk of a
// document.
func PointID(documentID string, chunkIndex int) string {
	name := fmt.Sprintf("doc:%s:chunk:%d", documentID, chunkIndex)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// TextExtractor reads a file into plain text.
type TextExtractor interface {
	Text(ctx context.Context, path string, progress ocr.ProgressFunc) (string, error)
}

// Pipeline ingests documents end to end: extract, chunk, embed, upsert,
// persist.
type Pipeline struct {
	repo      *repository.Repository
	extractor TextExtractor
	chunker   *chunker.Chunker
	embedder  embeddings.Provider
	index     vectorstore.Index
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	repo *repository.Repository,
	extractor TextExtractor,
	ch *chunker.Chunker,
	embedder embeddings.Provider,
	index vectorstore.Index,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		repo:      repo,
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// Ingest processes one document by id. Infrastructure and content errors both
// end in a failed status with a truncated reason; the returned error mirrors
// the status for synchronous callers.
func (p *Pipeline) Ingest(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "Pipeline.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	doc, err := p.repo.GetDocument(ctx, documentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := p.repo.SetProcessing(ctx, documentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := p.process(ctx, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if markErr := p.repo.MarkFailed(ctx, documentID, err.Error()); markErr != nil {
			p.logger.Error("failed to record ingestion failure",
				zap.String("document_id", documentID),
				zap.Error(markErr))
		}
		return err
	}

	span.SetStatus(codes.Ok, "completed")
	return nil
}

func (p *Pipeline) process(ctx context.Context, doc *repository.Document) error {
	text := doc.InlineText
	if text == "" && doc.Path != "" {
		extracted, err := p.extractor.Text(ctx, doc.Path, p.progressFunc(doc.ID))
		if err != nil {
			return fmt.Errorf("extracting text: %w", err)
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyDocument
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return ErrEmptyDocument
	}

	// One batched call per document; the provider decorator handles
	// sub-batching and caching.
	vectors, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	points := make([]vectorstore.Point, len(chunks))
	records := make([]repository.Chunk, len(chunks))
	for i, chunk := range chunks {
		pid := PointID(doc.ID, i)
		points[i] = vectorstore.Point{
			ID:     pid,
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				"document_id":  doc.ID,
				"title":        doc.Title,
				"content":      chunk,
				"chunk_index":  int64(i),
				"total_chunks": int64(len(chunks)),
				"content_type": doc.ContentType,
				"category":     doc.Category,
			},
		}
		records[i] = repository.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Text:       chunk,
			TokenCount: chunker.Estimator{}.Count(chunk),
			PointID:    pid,
		}
	}

	if err := p.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	if err := p.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	if err := p.repo.ReplaceChunks(ctx, doc.ID, records); err != nil {
		return fmt.Errorf("persisting chunk records: %w", err)
	}
	if err := p.repo.MarkCompleted(ctx, doc.ID, len(chunks)); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}

	p.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return nil
}

// Reindex deletes the document's existing points and chunk records, resets it
// to pending, and ingests again. Safe to invoke repeatedly; unchanged content
// reproduces the same point ids.
func (p *Pipeline) Reindex(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "Pipeline.Reindex")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	pointIDs, err := p.repo.PointIDs(ctx, documentID)
	if err != nil {
		return err
	}
	if len(pointIDs) > 0 {
		if err := p.index.Delete(ctx, pointIDs); err != nil {
			return fmt.Errorf("deleting existing points: %w", err)
		}
	}
	if err := p.repo.DeleteChunks(ctx, documentID); err != nil {
		return err
	}
	if err := p.repo.ResetPending(ctx, documentID); err != nil {
		return err
	}
	return p.Ingest(ctx, documentID)
}

// progressFunc logs OCR progress so long scanned documents are observable
// while they grind.
func (p *Pipeline) progressFunc(documentID string) ocr.ProgressFunc {
	return func(done, total int) {
		p.logger.Info("ocr progress",
			zap.String("document_id", documentID),
			zap.Int("pages_done", done),
			zap.Int("pages_total", total))
	}
}
