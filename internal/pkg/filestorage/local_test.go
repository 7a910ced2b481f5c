package filestorage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads/", zerolog.Nop())
	require.NoError(t, err)
	return ls, dir
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	ls, dir := newTestStorage(t)

	stored, err := ls.Save(context.Background(), strings.NewReader("%PDF-1.4 receipt"), "Receipt.PDF", "documents/42")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.Path, "documents/42/"))
	assert.True(t, strings.HasSuffix(stored.Path, ".pdf"))
	assert.Equal(t, "http://localhost:8080/uploads/"+stored.Path, stored.URL)
	assert.Equal(t, "Receipt.PDF", stored.Filename)
	assert.Equal(t, int64(len("%PDF-1.4 receipt")), stored.Size)
	assert.Equal(t, "application/pdf", stored.MimeType)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.Path)))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(stored.Path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.Path)))
	assert.True(t, os.IsNotExist(err))

	// idempotent
	assert.NoError(t, ls.Delete(stored.Path))
}

func TestLocalStorageKeepsTraversalInsideRoot(t *testing.T) {
	ls, dir := newTestStorage(t)

	stored, err := ls.Save(context.Background(), strings.NewReader("x"), "a.png", "../../etc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Path, "etc/"))

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.Path)))
	assert.NoError(t, err)
}

func TestUploadPolicyCheck(t *testing.T) {
	policy := DocumentPolicy(1024)

	assert.NoError(t, policy.Check(&multipart.FileHeader{Filename: "slip.PDF", Size: 10}))
	assert.ErrorIs(t, policy.Check(&multipart.FileHeader{Filename: "slip.exe", Size: 10}), ErrUnsupportedType)
	assert.ErrorIs(t, policy.Check(&multipart.FileHeader{Filename: "slip.pdf", Size: 2048}), ErrFileTooLarge)
}

func TestImageProcessorDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		src.Set(x, x%200, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	proc := NewImageProcessor(100)
	out, ext, err := proc.Downscale(&buf, "banner.png")
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestImageProcessorRejectsGarbage(t *testing.T) {
	_, _, err := NewImageProcessor(100).Downscale(strings.NewReader("not an image"), "x.jpg")
	assert.Error(t, err)
}
