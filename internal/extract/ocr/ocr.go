package ocr

import (
	"context"
	"errors"
)

// Provider is an optional OCR capability. Callers must branch on Available
// rather than on error type: an unavailable provider is a normal condition,
// not a failure.
type Provider interface {
	Available() bool
	Recognize(ctx context.Context, data []byte) (string, error)
}

// ErrUnavailable is returned by Recognize on providers that are not available.
var ErrUnavailable = errors.New("ocr unavailable")

// Disabled is a Provider that is never available. It is used when OCR is
// switched off or the engine cannot be initialized.
type Disabled struct{}

// Available always reports false.
func (Disabled) Available() bool { return false }

// Recognize always fails with ErrUnavailable.
func (Disabled) Recognize(ctx context.Context, data []byte) (string, error) {
	_ = ctx
	_ = data
	return "", ErrUnavailable
}

var _ Provider = Disabled{}
