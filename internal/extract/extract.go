// Package extract turns uploaded files into plain text. Text files are read
// directly, PDFs use native text extraction with an OCR fallback for scanned
// documents, Word documents are read from their XML body, and standalone
// images go straight through OCR.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/ocr"
)

// ErrUnsupportedType indicates a file extension the extractor cannot handle.
// This is a content error: ingestion marks the document failed, no retry.
var ErrUnsupportedType = errors.New("unsupported file type")

// DefaultScannedThreshold is the native-text length below which a PDF is
// treated as scanned and routed through OCR.
const DefaultScannedThreshold = 100

// Extractor reads files into text.
type Extractor struct {
	ocr *ocr.BatchExtractor
	// scannedThreshold is the native-text cutoff for the OCR fallback.
	scannedThreshold int
	// dpi used when rasterizing PDF pages for OCR.
	dpi    float64
	logger *zap.Logger
}

// New creates an Extractor. batch handles the OCR fallback; threshold <= 0
// uses DefaultScannedThreshold.
func New(batch *ocr.BatchExtractor, threshold int, dpi int, logger *zap.Logger) *Extractor {
	if threshold <= 0 {
		threshold = DefaultScannedThreshold
	}
	if dpi <= 0 {
		dpi = 150
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		ocr:              batch,
		scannedThreshold: threshold,
		dpi:              float64(dpi),
		logger:           logger,
	}
}

// Text extracts text from the file at path, dispatching on extension.
func (e *Extractor) Text(ctx context.Context, path string, progress ocr.ProgressFunc) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(data), nil
	case ".pdf":
		return e.pdfText(ctx, path, progress)
	case ".docx":
		return docxText(path)
	case ".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".gif":
		return e.imageText(ctx, path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// pdfText extracts native PDF text, falling back to rasterize+OCR when the
// document yields too little text to be a born-digital PDF.
func (e *Extractor) pdfText(ctx context.Context, path string, progress ocr.ProgressFunc) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", page, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	native := sb.String()
	if len(strings.TrimSpace(native)) >= e.scannedThreshold {
		return native, nil
	}

	e.logger.Info("pdf appears to be scanned, falling back to ocr",
		zap.String("path", path),
		zap.Int("native_text_len", len(strings.TrimSpace(native))),
		zap.Int("pages", doc.NumPage()))

	pages := make([][]byte, 0, doc.NumPage())
	for page := 0; page < doc.NumPage(); page++ {
		img, err := doc.ImagePNG(page, e.dpi)
		if err != nil {
			return "", fmt.Errorf("rasterizing page %d: %w", page, err)
		}
		pages = append(pages, img)
	}

	return e.ocr.Extract(ctx, pages, progress)
}

// imageText runs OCR over a standalone image file.
func (e *Extractor) imageText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", path, err)
	}
	return e.ocr.Extract(ctx, [][]byte{data}, nil)
}
