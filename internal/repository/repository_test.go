package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "ragd.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateDocument(ctx, Document{
		ID:          "doc-1",
		Title:       "Business Hours",
		ContentType: "text/plain",
		Category:    "faq",
	}))

	doc, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, doc.Status)
	assert.Nil(t, doc.ProcessedAt)

	require.NoError(t, repo.SetProcessing(ctx, "doc-1"))
	doc, err = repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, doc.Status)

	require.NoError(t, repo.MarkCompleted(ctx, "doc-1", 3))
	doc, err = repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.Equal(t, 3, doc.ChunkCount)
	require.NotNil(t, doc.ProcessedAt)
	assert.Empty(t, doc.FailedReason)
}

func TestMarkFailedTruncatesReason(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateDocument(ctx, Document{ID: "doc-1"}))
	require.NoError(t, repo.MarkFailed(ctx, "doc-1", strings.Repeat("x", 1500)))

	doc, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, doc.Status)
	assert.Len(t, doc.FailedReason, 1000)
	assert.Zero(t, doc.ChunkCount)
}

func TestResetPendingClearsCompletionState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateDocument(ctx, Document{ID: "doc-1"}))
	require.NoError(t, repo.MarkCompleted(ctx, "doc-1", 5))
	require.NoError(t, repo.ResetPending(ctx, "doc-1"))

	doc, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, doc.Status)
	assert.Zero(t, doc.ChunkCount)
	assert.Nil(t, doc.ProcessedAt)
}

func TestGetDocumentNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SetProcessing(context.Background(), "missing"), ErrNotFound)
}

func TestReplaceChunksRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateDocument(ctx, Document{ID: "doc-1"}))

	chunks := []Chunk{
		{DocumentID: "doc-1", Index: 0, Text: "first", TokenCount: 2, PointID: "pid-0"},
		{DocumentID: "doc-1", Index: 1, Text: "second", TokenCount: 3, PointID: "pid-1"},
	}
	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", chunks))

	got, err := repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)

	ids, err := repo.PointIDs(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pid-0", "pid-1"}, ids)

	// Replacement removes the old set entirely.
	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", chunks[:1]))
	got, err = repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, repo.DeleteChunks(ctx, "doc-1"))
	got, err = repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateDocument(ctx, Document{ID: "a"}))
	require.NoError(t, repo.CreateDocument(ctx, Document{ID: "b"}))
	require.NoError(t, repo.MarkCompleted(ctx, "b", 1))

	pending, err := repo.ListByStatus(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	completed, err := repo.ListByStatus(ctx, StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "b", completed[0].ID)
}
