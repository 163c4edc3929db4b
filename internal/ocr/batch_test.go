package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine recognizes pages by echoing their content, with optional
// per-page failures and delays.
type fakeEngine struct {
	mu       sync.Mutex
	failOn   map[string]bool
	delay    time.Duration
	closed   bool
	recCalls int
}

func (f *fakeEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	f.mu.Lock()
	f.recCalls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failOn[string(image)] {
		return "", errors.New("unreadable page")
	}
	return "text:" + string(image), nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// stuckEngine blocks in Recognize until released, ignoring context
// cancellation the way a native recognizer does. It records whether Close
// raced with an in-flight Recognize.
type stuckEngine struct {
	release chan struct{}

	mu          sync.Mutex
	recognizing bool
	closedEarly bool
	closed      bool
}

func (s *stuckEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	s.mu.Lock()
	s.recognizing = true
	s.mu.Unlock()
	<-s.release
	s.mu.Lock()
	s.recognizing = false
	s.mu.Unlock()
	return "text:" + string(image), nil
}

func (s *stuckEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recognizing {
		s.closedEarly = true
	}
	s.closed = true
	return nil
}

func pageImages(n int) [][]byte {
	pages := make([][]byte, n)
	for i := range pages {
		pages[i] = []byte(fmt.Sprintf("page-%d", i))
	}
	return pages
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		pages int
		want  int
	}{
		{0, 0},
		{1, 1},
		{5, 5},
		{6, 3},
		{10, 4},
		{20, 4},
		{21, 5},
		{50, 6},
		{51, 8},
		{200, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BatchSize(tt.pages), "pages=%d", tt.pages)
	}
}

func TestExtractConcatenatesInPageOrder(t *testing.T) {
	factory := func() (Engine, error) { return &fakeEngine{}, nil }
	ex := NewBatchExtractor(factory, Config{MaxWorkers: 3}, zap.NewNop())

	text, err := ex.Extract(context.Background(), pageImages(12), nil)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 12)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("text:page-%d", i), line)
	}
}

func TestExtractNoPages(t *testing.T) {
	factory := func() (Engine, error) { return &fakeEngine{}, nil }
	ex := NewBatchExtractor(factory, Config{}, zap.NewNop())

	_, err := ex.Extract(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestExtractSinglePageFailureContinues(t *testing.T) {
	factory := func() (Engine, error) {
		return &fakeEngine{failOn: map[string]bool{"page-3": true}}, nil
	}
	ex := NewBatchExtractor(factory, Config{MaxWorkers: 2}, zap.NewNop())

	text, err := ex.Extract(context.Background(), pageImages(8), nil)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "", lines[3])
	for i, line := range lines {
		if i == 3 {
			continue
		}
		assert.Equal(t, fmt.Sprintf("text:page-%d", i), line)
	}
}

func TestExtractPageTimeoutYieldsEmptyText(t *testing.T) {
	factory := func() (Engine, error) {
		return &fakeEngine{delay: 200 * time.Millisecond}, nil
	}
	ex := NewBatchExtractor(factory, Config{
		MaxWorkers:  1,
		PageTimeout: 20 * time.Millisecond,
	}, zap.NewNop())

	text, err := ex.Extract(context.Background(), pageImages(2), nil)
	require.NoError(t, err)
	assert.Equal(t, "\n", text)
}

func TestExtractClosesAbandonedEngineAfterRecognition(t *testing.T) {
	stuck := &stuckEngine{release: make(chan struct{})}
	first := true
	factory := func() (Engine, error) {
		if first {
			first = false
			return stuck, nil
		}
		return &fakeEngine{}, nil
	}
	ex := NewBatchExtractor(factory, Config{
		MaxWorkers:  1,
		PageTimeout: 20 * time.Millisecond,
	}, zap.NewNop())

	text, err := ex.Extract(context.Background(), pageImages(2), nil)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "text:page-1", lines[1])

	// The abandoned engine is still blocked inside Recognize and must not
	// have been closed yet.
	stuck.mu.Lock()
	assert.False(t, stuck.closed)
	stuck.mu.Unlock()

	close(stuck.release)
	assert.Eventually(t, func() bool {
		stuck.mu.Lock()
		defer stuck.mu.Unlock()
		return stuck.closed
	}, time.Second, 10*time.Millisecond)

	stuck.mu.Lock()
	defer stuck.mu.Unlock()
	assert.False(t, stuck.closedEarly, "engine closed while Recognize was in flight")
}

func TestExtractProgressCadence(t *testing.T) {
	factory := func() (Engine, error) { return &fakeEngine{}, nil }
	ex := NewBatchExtractor(factory, Config{MaxWorkers: 2, ProgressEveryPages: 4}, zap.NewNop())

	var mu sync.Mutex
	var reports [][2]int
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, [2]int{done, total})
	}

	_, err := ex.Extract(context.Background(), pageImages(10), progress)
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, 10, last[0])
	assert.Equal(t, 10, last[1])
	for _, r := range reports {
		assert.LessOrEqual(t, r[0], r[1])
	}
}

func TestExtractReleasesPageBuffers(t *testing.T) {
	factory := func() (Engine, error) { return &fakeEngine{}, nil }
	ex := NewBatchExtractor(factory, Config{MaxWorkers: 2}, zap.NewNop())

	pages := pageImages(6)
	_, err := ex.Extract(context.Background(), pages, nil)
	require.NoError(t, err)

	for i, p := range pages {
		assert.Nil(t, p, "page %d buffer should be released", i)
	}
}

func TestExtractAllEnginesFailToStart(t *testing.T) {
	factory := func() (Engine, error) { return nil, errors.New("tesseract not installed") }
	ex := NewBatchExtractor(factory, Config{MaxWorkers: 2}, zap.NewNop())

	_, err := ex.Extract(context.Background(), pageImages(4), nil)
	assert.Error(t, err)
}
