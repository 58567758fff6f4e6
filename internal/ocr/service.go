// Package ocr provides text recognition for inspection documents using
// Google Cloud Vision API and Google Document AI.
//
// Both backends are reduced to one shape: a Document holding the full text
// plus ordered lines and words with OCR confidence (0-100) and normalized
// bounding boxes. The extraction engine consumes that shape and is
// indifferent to which engine produced it.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (Document AI backend)
//
// Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous PDF processing
package ocr

import (
	"context"
	"io"
	"time"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5

	// MimePDF and friends are the input types the backends accept.
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// BoundingBox is an axis-aligned rectangle in normalized page coordinates,
// origin top-left, all values in [0,1].
type BoundingBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 { return b.Top + b.Height/2 }

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 { return b.Left + b.Width/2 }

// Line is one recognized text line. Confidence is engine-reported, 0-100.
// BBox is nil when the engine did not report geometry.
type Line struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	BBox       *BoundingBox `json:"bounding_box,omitempty"`
}

// Word is one recognized token.
type Word struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	BBox       *BoundingBox `json:"bounding_box,omitempty"`
}

// Document is the result of OCR processing, with metadata.
type Document struct {
	// Text is the extracted text from all pages, concatenated in reading order.
	Text string `json:"text"`

	// Lines and Words are in reading order across all pages.
	Lines []Line `json:"lines"`
	Words []Word `json:"words"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence across all detected text (0-100).
	Confidence float64 `json:"confidence"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Service is the interface both OCR backends implement.
type Service interface {
	// Process runs text recognition over a single document or photograph.
	// mimeType must be one of MimePDF, MimeJPEG, MimePNG.
	Process(ctx context.Context, input io.Reader, mimeType string) (*Document, error)

	// Close releases the underlying API client.
	Close() error
}
