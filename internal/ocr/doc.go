// Package ocr extracts text from rasterized page images with Tesseract.
//
// Large scanned documents are processed in adaptive batches: pages inside a
// batch run on a bounded worker pool while batches run sequentially, which
// caps peak memory. One unreadable page never aborts the document.
package ocr
