package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/EnabledTalentV2/ETBackendV2/internal/extract/ocr"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/metrics"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
)

// ErrUnsupportedFormat is returned when the file cannot be classified into
// a supported resume format. No retry will help.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// minEmbeddedTextLen is the threshold below which a PDF text layer is
// considered empty and the document treated as scanned.
const minEmbeddedTextLen = 50

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPDF
	kindDOCX
	kindImage
)

// Engine converts a resume file into structured fields. The OCR provider is
// an optional capability: when unavailable, image extraction degrades to
// empty text instead of failing.
type Engine struct {
	OCR ocr.Provider
}

// NewEngine constructs an extraction engine with the given OCR provider.
// A nil provider behaves like ocr.Disabled.
func NewEngine(provider ocr.Provider) *Engine {
	if provider == nil {
		provider = ocr.Disabled{}
	}
	return &Engine{OCR: provider}
}

// Extract classifies the file, pulls its raw text, and runs field extraction.
func (e *Engine) Extract(ctx context.Context, data []byte, contentType string, fileName string) (Fields, error) {
	text, err := e.ExtractText(ctx, data, contentType, fileName)
	if err != nil {
		return Fields{}, err
	}
	return ParseFields(text), nil
}

// ExtractText pulls raw text from a resume file according to its type.
func (e *Engine) ExtractText(ctx context.Context, data []byte, contentType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch classify(data, contentType, fileName) {
	case kindPDF:
		return e.extractPDF(ctx, data)
	case kindDOCX:
		return extractDOCX(data)
	case kindImage:
		return e.ocrText(ctx, data), nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// classify maps the declared content type to a supported kind, falling back
// to the filename extension when the content type is absent or generic.
func classify(data []byte, contentType string, fileName string) fileKind {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch {
	case clean == "application/pdf":
		return kindPDF
	case clean == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return kindDOCX
	case strings.HasPrefix(clean, "image/"):
		return kindImage
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return kindPDF
	case ".docx":
		return kindDOCX
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp":
		return kindImage
	}

	// An OOXML docx often arrives declared as a plain zip.
	if clean == "application/zip" && hasZipEntry(data, "word/document.xml") {
		return kindDOCX
	}
	return kindUnknown
}

var textLayer = pdfTextLayer

// extractPDF reads the embedded text layer page by page. When the text layer
// is shorter than the scanned-document threshold, the PDF is treated as
// scanned and routed through OCR.
func (e *Engine) extractPDF(ctx context.Context, data []byte) (string, error) {
	text, err := textLayer(data)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) >= minEmbeddedTextLen {
		return strings.TrimSpace(text), nil
	}
	metrics.IncParseOCRFallback()
	return e.ocrPDF(ctx, data), nil
}

// ocrPDF rasterizes a scanned PDF page by page and recognizes each page
// image, joining the page texts. Tesseract cannot decode PDF bytes directly,
// so the raster step is required. Degrades to empty text on failure.
func (e *Engine) ocrPDF(ctx context.Context, data []byte) string {
	provider := e.OCR
	if provider == nil || !provider.Available() {
		telemetry.Warn("extract.ocr_unavailable", map[string]any{"bytes": len(data)})
		return ""
	}
	pages, err := renderPages(data)
	if err != nil {
		telemetry.Warn("extract.pdf_render_failed", map[string]any{"error": err.Error()})
		return ""
	}
	var parts []string
	for i, page := range pages {
		text, err := provider.Recognize(ctx, page)
		if err != nil {
			telemetry.Warn("extract.ocr_failed", map[string]any{"page": i + 1, "error": err.Error()})
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

// ocrRenderDPI renders pages at twice the PDF point resolution, enough for
// tesseract to resolve standard resume body text.
const ocrRenderDPI = 144

var renderPages = pdfPageImages

// pdfPageImages renders each page to a PNG.
func pdfPageImages(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var pages [][]byte
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, ocrRenderDPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

func pdfTextLayer(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// ocrText runs the optional OCR capability, degrading to empty text when the
// provider is unavailable or fails. Availability over completeness.
func (e *Engine) ocrText(ctx context.Context, data []byte) string {
	provider := e.OCR
	if provider == nil || !provider.Available() {
		telemetry.Warn("extract.ocr_unavailable", map[string]any{"bytes": len(data)})
		return ""
	}
	text, err := provider.Recognize(ctx, data)
	if err != nil {
		telemetry.Warn("extract.ocr_failed", map[string]any{"error": err.Error()})
		return ""
	}
	return strings.TrimSpace(text)
}

// extractDOCX pulls paragraph text from word/document.xml, skipping blank
// paragraphs, joined by newline.
func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return docxParagraphs(raw), nil
}

func docxParagraphs(raw []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var lines []string
	var current strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(string(raw))
		}
		switch t := tok.(type) {
		case xml.CharData:
			current.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if line := strings.TrimSpace(current.String()); line != "" {
					lines = append(lines, line)
				}
				current.Reset()
			}
		}
	}
	if line := strings.TrimSpace(current.String()); line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func hasZipEntry(data []byte, entry string) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == entry {
			return true
		}
	}
	return false
}
