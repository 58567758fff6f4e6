package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// GoogleVisionService implements Service using Google Cloud Vision API.
// Photographs (instrument panels, licence discs) go through image
// annotation; PDF inspection reports go through file annotation.
type GoogleVisionService struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionService creates a new OCR service with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionService(ctx context.Context) (Service, error) {
	const op = "NewGoogleVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionService{client: client}, nil
}

// NewGoogleVisionServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionServiceWithClient(client *vision.ImageAnnotatorClient) Service {
	return &GoogleVisionService{client: client}
}

// Process runs document text detection over a photograph or PDF.
func (g *GoogleVisionService) Process(ctx context.Context, input io.Reader, mimeType string) (*Document, error) {
	const op = "Process"
	startTime := time.Now()

	data, err := io.ReadAll(input)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read input data")
	}
	if len(data) == 0 {
		return nil, WrapOCRError(op, ErrEmptyInput, "")
	}
	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}

	var doc *Document
	switch mimeType {
	case MimePDF:
		if len(data) < 4 || string(data[:4]) != "%PDF" {
			return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
		}
		doc, err = g.processPDF(ctx, data)
	case MimeJPEG, MimePNG:
		doc, err = g.processImage(ctx, data)
	default:
		return nil, WrapOCRError(op, ErrUnsupportedMimeType, mimeType)
	}
	if err != nil {
		return nil, err
	}

	doc.ProcessedAt = time.Now()
	doc.ProcessingDuration = doc.ProcessedAt.Sub(startTime)
	return doc, nil
}

func (g *GoogleVisionService) processImage(ctx context.Context, data []byte) (*Document, error) {
	const op = "processImage"

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, g.wrapAPIError(op, err)
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}

	return buildDocument([]*visionpb.AnnotateImageResponse{imgResp})
}

func (g *GoogleVisionService) processPDF(ctx context.Context, data []byte) (*Document, error) {
	const op = "processPDF"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: MimePDF,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, g.wrapAPIError(op, err)
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return nil, WrapOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", len(fileResp.Responses)))
	}

	return buildDocument(fileResp.Responses)
}

func (g *GoogleVisionService) wrapAPIError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "Quota") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return WrapOCRError(op, ErrQuotaExceeded, errStr)
	case strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, ErrContextCanceled, "")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
}

// buildDocument flattens one or more page responses into a Document with
// lines, words and normalized geometry.
func buildDocument(pages []*visionpb.AnnotateImageResponse) (*Document, error) {
	var allText strings.Builder
	var lines []Line
	var words []Word
	var confidenceSum float64
	var confidenceCount int

	for pageIdx, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.Error.Message)
		}
		ta := page.FullTextAnnotation
		if ta == nil {
			continue
		}
		if pageIdx > 0 {
			allText.WriteString("\n")
		}
		allText.WriteString(ta.Text)

		for _, p := range ta.Pages {
			pageW := float64(p.Width)
			pageH := float64(p.Height)

			for _, block := range p.Blocks {
				for _, paragraph := range block.Paragraphs {
					var lineText strings.Builder
					for wi, word := range paragraph.Words {
						wordText := symbolsText(word)
						if wordText == "" {
							continue
						}
						if wi > 0 {
							lineText.WriteString(" ")
						}
						lineText.WriteString(wordText)

						conf := float64(word.Confidence) * 100
						words = append(words, Word{
							Text:       wordText,
							Confidence: conf,
							BBox:       normalizeRect(word.BoundingBox, pageW, pageH),
						})
						if conf > 0 {
							confidenceSum += conf
							confidenceCount++
						}
					}
					if lineText.Len() == 0 {
						continue
					}
					lines = append(lines, Line{
						Text:       lineText.String(),
						Confidence: float64(paragraph.Confidence) * 100,
						BBox:       normalizeRect(paragraph.BoundingBox, pageW, pageH),
					})
				}
			}
		}
	}

	text := allText.String()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	var avgConfidence float64
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float64(confidenceCount)
	}

	return &Document{
		Text:       text,
		Lines:      lines,
		Words:      words,
		PageCount:  len(pages),
		Confidence: avgConfidence,
	}, nil
}

func symbolsText(word *visionpb.Word) string {
	var sb strings.Builder
	for _, sym := range word.Symbols {
		sb.WriteString(sym.Text)
	}
	return sb.String()
}

// normalizeRect reduces a Vision bounding poly to an axis-aligned rectangle
// in normalized page coordinates. Returns nil when no geometry is available.
func normalizeRect(poly *visionpb.BoundingPoly, pageW, pageH float64) *BoundingBox {
	if poly == nil {
		return nil
	}

	if len(poly.NormalizedVertices) > 0 {
		minX, minY := 1.0, 1.0
		maxX, maxY := 0.0, 0.0
		for _, v := range poly.NormalizedVertices {
			x, y := float64(v.X), float64(v.Y)
			minX, maxX = minFloat(minX, x), maxFloat(maxX, x)
			minY, maxY = minFloat(minY, y), maxFloat(maxY, y)
		}
		return &BoundingBox{Top: minY, Left: minX, Width: maxX - minX, Height: maxY - minY}
	}

	if len(poly.Vertices) > 0 && pageW > 0 && pageH > 0 {
		minX, minY := pageW, pageH
		maxX, maxY := 0.0, 0.0
		for _, v := range poly.Vertices {
			x, y := float64(v.X), float64(v.Y)
			minX, maxX = minFloat(minX, x), maxFloat(maxX, x)
			minY, maxY = minFloat(minY, y), maxFloat(maxY, y)
		}
		return &BoundingBox{
			Top:    minY / pageH,
			Left:   minX / pageW,
			Width:  (maxX - minX) / pageW,
			Height: (maxY - minY) / pageH,
		}
	}

	return nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Close closes the underlying Vision client.
func (g *GoogleVisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
