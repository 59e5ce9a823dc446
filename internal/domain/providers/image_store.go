package providers

import (
	"context"
	"io"
)

// ImageStore persists uploaded article images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
