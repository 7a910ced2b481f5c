package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/filestorage"
	"github.com/yigit/studentportal/internal/pkg/helpers"
	"github.com/yigit/studentportal/internal/pkg/validation"
)

// DefaultUploadEditWindow is how long a pending document may be replaced
const DefaultUploadEditWindow = 7 * 24 * time.Hour

// UploadService stores registration documents and their verification state
type UploadService struct {
	uploadRepo uploadStore
	storage    filestorage.FileStorage
	policy     filestorage.UploadPolicy
	editWindow time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

func NewUploadService(
	uploadRepo uploadStore,
	storage filestorage.FileStorage,
	maxBytes int64,
	editWindow time.Duration,
	logger zerolog.Logger,
) *UploadService {
	if editWindow <= 0 {
		editWindow = DefaultUploadEditWindow
	}
	return &UploadService{
		uploadRepo: uploadRepo,
		storage:    storage,
		policy:     filestorage.DocumentPolicy(maxBytes),
		editWindow: editWindow,
		now:        time.Now,
		logger:     logger,
	}
}

func uploadDir(studentID int64) string {
	return fmt.Sprintf("documents/%d", studentID)
}

// storeFile saves fh and turns policy failures into validation errors
func (s *UploadService) storeFile(ctx context.Context, studentID int64, fh *multipart.FileHeader) (*filestorage.StoredFile, error) {
	if fh == nil {
		return nil, apperrors.NewValidationError("file is required").WithField("file")
	}
	stored, err := filestorage.SaveMultipart(ctx, s.storage, fh, uploadDir(studentID), s.policy)
	if err != nil {
		if errors.Is(err, filestorage.ErrFileTooLarge) || errors.Is(err, filestorage.ErrUnsupportedType) {
			return nil, apperrors.NewValidationError(err.Error()).WithField("file")
		}
		s.logger.Error().Err(err).Int64("studentID", studentID).Msg("Failed to store document")
		return nil, err
	}
	return stored, nil
}

func (s *UploadService) discard(path string) {
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete stored file")
	}
}

// Upload stores a new PENDING document for the student
func (s *UploadService) Upload(ctx context.Context, studentID int64, req *dto.UploadDocumentRequest, fh *multipart.FileHeader) (*models.Upload, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	stored, err := s.storeFile(ctx, studentID, fh)
	if err != nil {
		return nil, err
	}

	u := &models.Upload{
		StudentID:    studentID,
		Semester:     req.Semester,
		Level:        req.Level,
		DocumentType: req.DocumentType,
		FileName:     stored.Filename,
		FilePath:     stored.Path,
		FileURL:      stored.URL,
		FileSize:     stored.Size,
		MimeType:     stored.MimeType,
	}
	if err := s.uploadRepo.Create(ctx, u); err != nil {
		s.discard(stored.Path)
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", studentID).
		Int64("uploadID", u.ID).
		Str("documentType", string(u.DocumentType)).
		Msg("Document uploaded")
	return u, nil
}

// Replace swaps the file of the student's own pending upload inside the edit window
func (s *UploadService) Replace(ctx context.Context, studentID, uploadID int64, fh *multipart.FileHeader) (*models.Upload, error) {
	u, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if u.StudentID != studentID {
		return nil, apperrors.NewForbiddenError("you can only replace your own documents")
	}

	now := s.now()
	if !u.Replaceable(now, s.editWindow) {
		return nil, apperrors.NewConflictError("document can no longer be replaced")
	}

	stored, err := s.storeFile(ctx, studentID, fh)
	if err != nil {
		return nil, err
	}

	oldPath := u.FilePath
	u.FileName = stored.Filename
	u.FilePath = stored.Path
	u.FileURL = stored.URL
	u.FileSize = stored.Size
	u.MimeType = stored.MimeType

	ok, err := s.uploadRepo.ReplaceFile(ctx, u, now.Add(-s.editWindow))
	if err != nil {
		s.discard(stored.Path)
		return nil, err
	}
	if !ok {
		// verified or aged out between the read and the write
		s.discard(stored.Path)
		return nil, apperrors.NewConflictError("document can no longer be replaced")
	}

	s.discard(oldPath)
	s.logger.Info().Int64("studentID", studentID).Int64("uploadID", u.ID).Msg("Document replaced")
	return u, nil
}

// Verify marks an upload as checked by an admin. Verifying twice is a no-op.
func (s *UploadService) Verify(ctx context.Context, adminID, uploadID int64) (*models.Upload, error) {
	u, changed, err := s.uploadRepo.MarkVerified(ctx, uploadID, adminID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info().Int64("adminID", adminID).Int64("uploadID", uploadID).Msg("Document verified")
	}
	return u, nil
}

func (s *UploadService) ListMine(ctx context.Context, studentID int64, q dto.PageQuery) (*dto.Page[*models.Upload], error) {
	offset, limit := helpers.CalculateOffsetLimit(q.Page, q.PageSize)
	items, total, err := s.uploadRepo.ListByStudent(ctx, studentID, offset, limit)
	if err != nil {
		return nil, err
	}
	page := helpers.NewPage(items, total, q.Page, q.PageSize)
	return &page, nil
}

func (s *UploadService) ListPending(ctx context.Context, q dto.PageQuery) (*dto.Page[*models.Upload], error) {
	offset, limit := helpers.CalculateOffsetLimit(q.Page, q.PageSize)
	items, total, err := s.uploadRepo.ListPending(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	page := helpers.NewPage(items, total, q.Page, q.PageSize)
	return &page, nil
}
