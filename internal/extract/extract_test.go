package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

type stubOCR struct {
	available bool
	text      string
	err       error
	calls     int
}

func (s *stubOCR) Available() bool { return s.available }

func (s *stubOCR) Recognize(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

// pagedOCR maps rendered page bytes to recognized text and flags any call
// that still carries a PDF header.
type pagedOCR struct {
	texts      map[string]string
	rawPDFSeen bool
}

func (p *pagedOCR) Available() bool { return true }

func (p *pagedOCR) Recognize(_ context.Context, data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		p.rawPDFSeen = true
	}
	return p.texts[string(data)], nil
}

func withTextLayer(t *testing.T, fn func([]byte) (string, error)) {
	t.Helper()
	orig := textLayer
	textLayer = fn
	t.Cleanup(func() { textLayer = orig })
}

func withRenderPages(t *testing.T, fn func([]byte) ([][]byte, error)) {
	t.Helper()
	orig := renderPages
	renderPages = fn
	t.Cleanup(func() { renderPages = orig })
}

func TestExtractPDFRichTextLayerSkipsOCR(t *testing.T) {
	embedded := "John Smith\njohn@example.com\nExperienced backend engineer with Go."
	withTextLayer(t, func([]byte) (string, error) { return embedded, nil })

	provider := &stubOCR{available: true, text: "ocr text"}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "resume.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != embedded {
		t.Fatalf("text = %q, want embedded layer", got)
	}
	if provider.calls != 0 {
		t.Fatalf("OCR called %d times for a text-layer PDF", provider.calls)
	}
}

func TestExtractPDFSparseTextLayerFallsBackToOCR(t *testing.T) {
	withTextLayer(t, func([]byte) (string, error) { return "Page 1", nil })
	withRenderPages(t, func([]byte) ([][]byte, error) {
		return [][]byte{[]byte("page-1-png")}, nil
	})

	provider := &stubOCR{available: true, text: "  Jane Doe\njane@example.com  "}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Jane Doe\njane@example.com" {
		t.Fatalf("text = %q, want trimmed OCR output", got)
	}
	if provider.calls != 1 {
		t.Fatalf("OCR calls = %d, want 1", provider.calls)
	}
}

// The scanned path must hand the provider rendered page images, never the
// raw PDF bytes, and join the per-page results.
func TestExtractPDFScannedPagesAreRasterizedForOCR(t *testing.T) {
	withTextLayer(t, func([]byte) (string, error) { return "", nil })
	withRenderPages(t, func([]byte) ([][]byte, error) {
		return [][]byte{[]byte("png-page-1"), []byte("png-page-2")}, nil
	})

	provider := &pagedOCR{texts: map[string]string{
		"png-page-1": "Jane Doe",
		"png-page-2": "Senior Engineer",
	}}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Jane Doe\nSenior Engineer" {
		t.Fatalf("text = %q, want joined page texts", got)
	}
	if provider.rawPDFSeen {
		t.Fatal("provider received raw PDF bytes instead of page images")
	}
}

func TestExtractPDFRenderFailureDegradesToEmpty(t *testing.T) {
	withTextLayer(t, func([]byte) (string, error) { return "", nil })
	withRenderPages(t, func([]byte) ([][]byte, error) {
		return nil, errors.New("broken xref")
	})

	provider := &stubOCR{available: true, text: "never used"}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "" {
		t.Fatalf("text = %q, want empty when rendering fails", got)
	}
	if provider.calls != 0 {
		t.Fatalf("OCR calls = %d, want 0 when rendering fails", provider.calls)
	}
}

func TestExtractPDFSparseTextLayerWithoutOCRDegradesToEmpty(t *testing.T) {
	withTextLayer(t, func([]byte) (string, error) { return "", nil })

	engine := NewEngine(nil)
	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "" {
		t.Fatalf("text = %q, want empty when OCR is unavailable", got)
	}
}

func TestExtractPDFOCRErrorDegradesToEmpty(t *testing.T) {
	withTextLayer(t, func([]byte) (string, error) { return "", nil })
	withRenderPages(t, func([]byte) ([][]byte, error) {
		return [][]byte{[]byte("page-1-png")}, nil
	})

	provider := &stubOCR{available: true, err: errors.New("engine crashed")}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte("%PDF-"), "application/pdf", "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "" {
		t.Fatalf("text = %q, want empty when OCR fails", got)
	}
}

func TestExtractImageUsesOCR(t *testing.T) {
	provider := &stubOCR{available: true, text: "Name: Alice"}
	engine := NewEngine(provider)

	got, err := engine.ExtractText(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "resume.jpg")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Name: Alice" {
		t.Fatalf("text = %q", got)
	}
	if provider.calls != 1 {
		t.Fatalf("OCR calls = %d, want 1", provider.calls)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	engine := NewEngine(nil)
	_, err := engine.ExtractText(context.Background(), []byte("hello"), "text/plain", "resume.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXParagraphs(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>John Smith</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Skills: </w:t></w:r><w:r><w:t>Python, Django</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDOCX(t, doc)

	engine := NewEngine(nil)
	got, err := engine.ExtractText(context.Background(), data,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "resume.docx")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := "John Smith\nSkills: Python, Django"
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	engine := NewEngine(nil)
	_, err := engine.ExtractText(context.Background(), buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "resume.docx")
	if err == nil {
		t.Fatal("expected error for docx without document.xml")
	}
}

func TestClassifyFallsBackToExtension(t *testing.T) {
	cases := []struct {
		contentType string
		fileName    string
		want        fileKind
	}{
		{"", "resume.pdf", kindPDF},
		{"application/octet-stream", "resume.pdf", kindPDF},
		{"", "resume.docx", kindDOCX},
		{"", "photo.PNG", kindImage},
		{"application/pdf; charset=binary", "noext", kindPDF},
		{"", "resume.doc", kindUnknown},
	}
	for _, tc := range cases {
		if got := classify(nil, tc.contentType, tc.fileName); got != tc.want {
			t.Errorf("classify(%q, %q) = %v, want %v", tc.contentType, tc.fileName, got, tc.want)
		}
	}
}

func TestClassifySniffsDOCXInsideZip(t *testing.T) {
	data := buildDOCX(t, "<w:document/>")
	if got := classify(data, "application/zip", "upload.bin"); got != kindDOCX {
		t.Fatalf("classify zip-wrapped docx = %v, want kindDOCX", got)
	}
}

func TestExtractRunsFieldParsing(t *testing.T) {
	text := strings.Join([]string{
		"Jane Doe",
		"jane.doe@example.com",
		"Skills: Python, SQL",
	}, "\n")
	withTextLayer(t, func([]byte) (string, error) { return text, nil })

	engine := NewEngine(nil)
	fields, err := engine.Extract(context.Background(), []byte("%PDF-"), "application/pdf", "resume.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fields.Email == nil || *fields.Email != "jane.doe@example.com" {
		t.Fatalf("email = %v", fields.Email)
	}
	if len(fields.Skills) != 2 {
		t.Fatalf("skills = %v", fields.Skills)
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(nil)
	if _, err := engine.ExtractText(ctx, nil, "application/pdf", "resume.pdf"); err == nil {
		t.Fatal("expected context error")
	}
}
