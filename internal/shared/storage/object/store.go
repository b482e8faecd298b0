package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// Resume files are stored under a per-candidate namespace; derived artifacts
// (extracted text) are stored at explicit keys next to their source.
type ObjectStore interface {
	Save(ctx context.Context, candidateSlug string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
