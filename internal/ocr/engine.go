package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// ErrEmptyImage indicates a nil or empty page image.
var ErrEmptyImage = errors.New("empty page image")

// Engine recognizes text in a single page image. Implementations are not
// required to be goroutine-safe; callers use one engine per worker.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// EngineFactory creates a fresh engine. The batch extractor calls it once per
// worker, and again to replace an engine abandoned on timeout.
type EngineFactory func() (Engine, error)

// TesseractEngine wraps a gosseract client. A client holds native Tesseract
// state and must not be shared across goroutines.
type TesseractEngine struct {
	client *gosseract.Client
}

// NewTesseractEngine creates an engine for the given Tesseract language
// codes, e.g. ["eng", "ind"].
func NewTesseractEngine(languages []string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting ocr languages %v: %w", languages, err)
		}
	}
	return &TesseractEngine{client: client}, nil
}

// NewTesseractFactory returns an EngineFactory producing engines for the
// given languages.
func NewTesseractFactory(languages []string) EngineFactory {
	return func() (Engine, error) {
		return NewTesseractEngine(languages)
	}
}

// Recognize runs OCR over one page image. The context deadline is checked
// before the call; the native recognition itself is not interruptible.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing page: %w", err)
	}
	return text, nil
}

// Close releases the native Tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}

var _ Engine = (*TesseractEngine)(nil)
