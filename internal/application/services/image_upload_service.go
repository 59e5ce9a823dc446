package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/providers"
	apperrors "github.com/afferentology/platform/backend/pkg/errors"
)

// DefaultMaxImageBytes is the upload size limit when none is configured.
const DefaultMaxImageBytes = 5 * 1024 * 1024

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ImageUploadService validates article images, downsizes wide JPEG and PNG files and stores them.
type ImageUploadService struct {
	store    providers.ImageStore
	maxBytes int64
	maxWidth int
	now      func() time.Time
}

// NewImageUploadService creates an upload service. maxWidth <= 0 disables resizing.
func NewImageUploadService(store providers.ImageStore, maxBytes int64, maxWidth int) *ImageUploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageUploadService{
		store:    store,
		maxBytes: maxBytes,
		maxWidth: maxWidth,
		now:      time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *ImageUploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores one image and returns its public URL.
func (s *ImageUploadService) Upload(ctx context.Context, contentType string, size int64, r io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", apperrors.NewValidationError("Invalid file type. Only images are allowed.")
	}
	if size > s.maxBytes {
		return "", apperrors.NewValidationError(fmt.Sprintf("File too large. Maximum size is %dMB.", s.maxBytes/(1024*1024)))
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", apperrors.NewInternalError("failed to read upload", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperrors.NewValidationError(fmt.Sprintf("File too large. Maximum size is %dMB.", s.maxBytes/(1024*1024)))
	}
	if len(data) == 0 {
		return "", apperrors.NewValidationError("No file provided")
	}

	if ext == "jpg" || ext == "png" {
		data, err = s.downscale(data, ext)
		if err != nil {
			return "", apperrors.NewValidationError("file is not a valid image")
		}
	}

	name := fmt.Sprintf("%d-%s.%s", s.now().UnixMilli(), uuid.New().String()[:8], ext)
	url, err := s.store.Save(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return "", apperrors.NewInternalError("Failed to upload image", err)
	}

	log.Info().Str("file", name).Int("bytes", len(data)).Msg("Article image uploaded")
	return url, nil
}

// downscale re-encodes images wider than maxWidth. Narrower images are kept byte for byte.
func (s *ImageUploadService) downscale(data []byte, ext string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if s.maxWidth <= 0 || cfg.Width <= s.maxWidth {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	resized := imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)

	format := imaging.JPEG
	if ext == "png" {
		format = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
