package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

func newUploadFixture(now time.Time) (*UploadService, *fakeUploads, *memStorage) {
	repo := newFakeUploads(now)
	storage := newMemStorage()
	svc := NewUploadService(repo, storage, 1<<20, 0, zerolog.Nop())
	svc.now = fixedClock(now)
	return svc, repo, storage
}

func slipRequest() *dto.UploadDocumentRequest {
	return &dto.UploadDocumentRequest{
		DocumentType: models.DocumentRegistrationSlip,
		Semester:     models.SemesterFirst,
		Level:        200,
	}
}

func TestUploadStoresPendingDocument(t *testing.T) {
	svc, _, storage := newUploadFixture(testNow)

	u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, models.UploadPending, u.Status)
	assert.Equal(t, "slip.pdf", u.FileName)
	assert.Equal(t, int64(8), u.FileSize)
	assert.Equal(t, 1, storage.count())
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc, _, storage := newUploadFixture(testNow)

	_, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "virus.exe", []byte("MZ")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	big := make([]byte, 2<<20)
	_, err = svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "scan.png", big))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	req := slipRequest()
	req.DocumentType = "PASSPORT"
	_, err = svc.Upload(context.Background(), 1, req, fileHeader(t, "file", "slip.pdf", []byte("x")))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Upload(context.Background(), 1, slipRequest(), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	assert.Zero(t, storage.count())
}

func TestUploadNamesInvalidField(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*dto.UploadDocumentRequest)
		field string
	}{
		{"unknown document type", func(r *dto.UploadDocumentRequest) { r.DocumentType = "PASSPORT" }, "documentType"},
		{"missing document type", func(r *dto.UploadDocumentRequest) { r.DocumentType = "" }, "documentType"},
		{"unknown semester", func(r *dto.UploadDocumentRequest) { r.Semester = "Summer" }, "semester"},
		{"level off the list", func(r *dto.UploadDocumentRequest) { r.Level = 150 }, "level"},
		{"missing level", func(r *dto.UploadDocumentRequest) { r.Level = 0 }, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, storage := newUploadFixture(testNow)
			req := slipRequest()
			tt.edit(req)

			_, err := svc.Upload(context.Background(), 1, req, fileHeader(t, "file", "slip.pdf", []byte("%PDF-1.4")))
			require.ErrorIs(t, err, apperrors.ErrValidationFailed)

			var cerr *apperrors.CustomError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
			assert.Zero(t, storage.count())
			assert.Empty(t, repo.uploads)
		})
	}
}

func TestReplaceUpload(t *testing.T) {
	svc, repo, storage := newUploadFixture(testNow)
	u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v1")))
	require.NoError(t, err)
	oldPath := u.FilePath

	svc.now = fixedClock(testNow.Add(6 * 24 * time.Hour))
	replaced, err := svc.Replace(context.Background(), 1, u.ID, fileHeader(t, "file", "slip-v2.pdf", []byte("version2")))
	require.NoError(t, err)
	assert.Equal(t, "slip-v2.pdf", replaced.FileName)
	assert.Contains(t, storage.deleted, oldPath)
	assert.Equal(t, 1, storage.count())

	stored, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "slip-v2.pdf", stored.FileName)
}

func TestReplaceUploadRules(t *testing.T) {
	t.Run("not the owner", func(t *testing.T) {
		svc, _, _ := newUploadFixture(testNow)
		u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v1")))
		require.NoError(t, err)

		_, err = svc.Replace(context.Background(), 2, u.ID, fileHeader(t, "file", "slip.pdf", []byte("v2")))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})

	t.Run("after the edit window", func(t *testing.T) {
		svc, _, storage := newUploadFixture(testNow)
		u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v1")))
		require.NoError(t, err)

		svc.now = fixedClock(testNow.Add(7 * 24 * time.Hour))
		_, err = svc.Replace(context.Background(), 1, u.ID, fileHeader(t, "file", "slip.pdf", []byte("v2")))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Equal(t, 1, storage.count())
	})

	t.Run("already verified", func(t *testing.T) {
		svc, _, _ := newUploadFixture(testNow)
		u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v1")))
		require.NoError(t, err)
		_, err = svc.Verify(context.Background(), 99, u.ID)
		require.NoError(t, err)

		_, err = svc.Replace(context.Background(), 1, u.ID, fileHeader(t, "file", "slip.pdf", []byte("v2")))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("missing upload", func(t *testing.T) {
		svc, _, _ := newUploadFixture(testNow)
		_, err := svc.Replace(context.Background(), 1, 404, fileHeader(t, "file", "slip.pdf", []byte("v2")))
		assert.ErrorIs(t, err, apperrors.ErrUploadNotFound)
	})
}

func TestVerifyUploadIsIdempotent(t *testing.T) {
	svc, _, _ := newUploadFixture(testNow)
	u, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v1")))
	require.NoError(t, err)

	first, err := svc.Verify(context.Background(), 99, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadVerified, first.Status)
	require.NotNil(t, first.VerifiedBy)
	assert.Equal(t, int64(99), *first.VerifiedBy)

	second, err := svc.Verify(context.Background(), 100, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadVerified, second.Status)
	assert.Equal(t, int64(99), *second.VerifiedBy)
}

func TestListUploads(t *testing.T) {
	svc, _, _ := newUploadFixture(testNow)
	for i := 0; i < 3; i++ {
		_, err := svc.Upload(context.Background(), 1, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v")))
		require.NoError(t, err)
	}
	other, err := svc.Upload(context.Background(), 2, slipRequest(), fileHeader(t, "file", "slip.pdf", []byte("v")))
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), 99, other.ID)
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), 1, dto.PageQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)
	assert.Equal(t, int64(3), mine.Pagination.TotalItems)
	assert.Equal(t, 2, mine.Pagination.TotalPages)

	pending, err := svc.ListPending(context.Background(), dto.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 3)
}
