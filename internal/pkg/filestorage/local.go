package filestorage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStorage keeps files on the local filesystem below basePath.
type LocalStorage struct {
	basePath  string
	publicURL string // e.g. http://localhost:8080/uploads
	logger    zerolog.Logger
}

// NewLocalStorage ensures basePath exists. publicURL is the prefix under which
// the server exposes basePath.
func NewLocalStorage(basePath, publicURL string, logger zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

func (ls *LocalStorage) Save(ctx context.Context, r io.Reader, originalName, subDir string) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subDir = strings.Trim(path.Clean("/"+filepath.ToSlash(subDir)), "/")
	dir := filepath.Join(ls.basePath, filepath.FromSlash(subDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	dstPath := filepath.Join(dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	br := bufio.NewReader(r)
	head, _ := br.Peek(512)
	mimeType := http.DetectContentType(head)

	size, err := io.Copy(dst, br)
	if err != nil {
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	rel := path.Join(subDir, name)
	ls.logger.Debug().Str("filename", originalName).Str("saved_as", rel).Int64("size", size).Msg("File saved")

	return &StoredFile{
		Path:     rel,
		URL:      ls.publicURL + "/" + rel,
		Filename: filepath.Base(originalName),
		Size:     size,
		MimeType: mimeType,
	}, nil
}

func (ls *LocalStorage) Delete(rel string) error {
	if rel == "" {
		return nil
	}

	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
	if clean == "" {
		return fmt.Errorf("invalid file path: %s", rel)
	}

	full := filepath.Join(ls.basePath, filepath.FromSlash(clean))
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			ls.logger.Warn().Str("path", full).Msg("File to delete does not exist")
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	ls.logger.Debug().Str("path", full).Msg("File deleted")
	return nil
}
