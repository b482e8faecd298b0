package ocr

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements Provider using the gosseract bindings. Each Recognize
// call uses its own client; gosseract clients are not safe for concurrent use.
type Tesseract struct {
	lang string

	probeOnce sync.Once
	probeOK   bool
}

// NewTesseract creates a Tesseract-backed OCR provider for the given language.
func NewTesseract(lang string) *Tesseract {
	if strings.TrimSpace(lang) == "" {
		lang = "eng"
	}
	return &Tesseract{lang: lang}
}

// Available probes the installed tesseract runtime once and caches the result.
func (t *Tesseract) Available() bool {
	t.probeOnce.Do(func() {
		langs, err := gosseract.GetAvailableLanguages()
		t.probeOK = err == nil && len(langs) > 0
	})
	return t.probeOK
}

// Recognize runs OCR over the given image bytes.
func (t *Tesseract) Recognize(ctx context.Context, data []byte) (string, error) {
	if !t.Available() {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.lang); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", err
	}

	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

var _ Provider = (*Tesseract)(nil)
