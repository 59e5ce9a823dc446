package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// LocalImageStore writes uploads under a directory that the API also serves statically.
type LocalImageStore struct {
	dir           string
	publicBaseURL string
}

var _ providers.ImageStore = (*LocalImageStore)(nil)

// NewLocalImageStore creates the upload directory if needed.
func NewLocalImageStore(dir, publicBaseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &LocalImageStore{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *LocalImageStore) Dir() string {
	return s.dir
}

// Save writes r to name and returns its public URL. Existing files are never overwritten.
func (s *LocalImageStore) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}

	return s.publicBaseURL + "/" + url.PathEscape(name), nil
}
