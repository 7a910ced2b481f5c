package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageProcessor shrinks uploaded pictures before they are stored
type ImageProcessor struct {
	MaxDimension int
	JPEGQuality  int
}

func NewImageProcessor(maxDimension int) *ImageProcessor {
	return &ImageProcessor{MaxDimension: maxDimension, JPEGQuality: 85}
}

// Downscale decodes r, honours EXIF orientation and fits the image inside
// MaxDimension x MaxDimension. The result keeps the source format where
// imaging can encode it and falls back to JPEG otherwise.
func (p *ImageProcessor) Downscale(r io.Reader, originalName string) ([]byte, string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if p.MaxDimension > 0 && (b.Dx() > p.MaxDimension || b.Dy() > p.MaxDimension) {
		img = imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		format, ext = imaging.JPEG, ".jpg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(p.JPEGQuality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), ext, nil
}

// Dimensions reports the size of an encoded image without keeping it
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// SaveImage checks fh against policy, downscales it and stores the result
func SaveImage(ctx context.Context, storage FileStorage, proc *ImageProcessor, fh *multipart.FileHeader, subDir string, policy UploadPolicy) (*StoredFile, error) {
	if err := policy.Check(fh); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer f.Close()

	data, ext, err := proc.Downscale(f, fh.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	name := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)) + ext
	return storage.Save(ctx, bytes.NewReader(data), name, subDir)
}
