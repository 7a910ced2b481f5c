package filestorage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// UploadPolicy restricts what SaveMultipart accepts
type UploadPolicy struct {
	MaxBytes   int64
	Extensions []string // lower case, with dot
}

// DocumentPolicy accepts scanned documents and photos of them
func DocumentPolicy(maxBytes int64) UploadPolicy {
	return UploadPolicy{MaxBytes: maxBytes, Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"}}
}

// ImagePolicy accepts the image formats imaging can decode
func ImagePolicy(maxBytes int64) UploadPolicy {
	return UploadPolicy{MaxBytes: maxBytes, Extensions: []string{".jpg", ".jpeg", ".png", ".gif"}}
}

// Check validates the header against the policy
func (p UploadPolicy) Check(fh *multipart.FileHeader) error {
	if p.MaxBytes > 0 && fh.Size > p.MaxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, fh.Filename, fh.Size, p.MaxBytes)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	for _, allowed := range p.Extensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
}

// SaveMultipart checks fh against policy and stores it under subDir
func SaveMultipart(ctx context.Context, storage FileStorage, fh *multipart.FileHeader, subDir string, policy UploadPolicy) (*StoredFile, error) {
	if err := policy.Check(fh); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	return storage.Save(ctx, f, fh.Filename, subDir)
}
