package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/logger"
)

var uploadColumns = []string{
	"id", "student_id", "registration_id", "semester", "level", "document_type",
	"file_name", "file_path", "file_url", "file_size", "mime_type", "status",
	"verified_by", "verified_at", "created_at", "updated_at",
}

// UploadRepository handles document upload rows
type UploadRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUploadRepository creates a new UploadRepository
func NewUploadRepository(db *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUpload(row pgx.Row) (*models.Upload, error) {
	var u models.Upload
	err := row.Scan(&u.ID, &u.StudentID, &u.RegistrationID, &u.Semester, &u.Level, &u.DocumentType,
		&u.FileName, &u.FilePath, &u.FileURL, &u.FileSize, &u.MimeType, &u.Status,
		&u.VerifiedBy, &u.VerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func uploadNotFound() error {
	return apperrors.NewNotFoundError(apperrors.ErrUploadNotFound, "upload not found")
}

// Create inserts a PENDING upload
func (r *UploadRepository) Create(ctx context.Context, u *models.Upload) error {
	query, args, err := r.sb.Insert("uploads").
		Columns("student_id", "semester", "level", "document_type",
			"file_name", "file_path", "file_url", "file_size", "mime_type", "status").
		Values(u.StudentID, u.Semester, u.Level, u.DocumentType,
			u.FileName, u.FilePath, u.FileURL, u.FileSize, u.MimeType, models.UploadPending).
		Suffix("RETURNING id, status, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create upload query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("studentID", u.StudentID).Msg("Error creating upload")
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

// GetByID retrieves an upload by ID
func (r *UploadRepository) GetByID(ctx context.Context, id int64) (*models.Upload, error) {
	query, args, err := r.sb.Select(uploadColumns...).From("uploads").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get upload query: %w", err)
	}

	u, err := scanUpload(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uploadNotFound()
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return u, nil
}

// ReplaceFile swaps the stored file of a pending upload created after
// notBefore. It reports false when the row no longer qualifies.
func (r *UploadRepository) ReplaceFile(ctx context.Context, u *models.Upload, notBefore time.Time) (bool, error) {
	query, args, err := r.sb.Update("uploads").
		Set("file_name", u.FileName).
		Set("file_path", u.FilePath).
		Set("file_url", u.FileURL).
		Set("file_size", u.FileSize).
		Set("mime_type", u.MimeType).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": u.ID, "student_id": u.StudentID, "status": models.UploadPending}).
		Where(squirrel.Gt{"created_at": notBefore}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build replace upload query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to replace upload: %w", err)
	}
	return true, nil
}

// MarkVerified moves a PENDING upload to VERIFIED and returns the stored row.
// verified is false when the row was already verified.
func (r *UploadRepository) MarkVerified(ctx context.Context, id, adminID int64) (upload *models.Upload, verified bool, err error) {
	query, args, err := r.sb.Update("uploads").
		Set("status", models.UploadVerified).
		Set("verified_by", adminID).
		Set("verified_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": models.UploadPending}).
		Suffix("RETURNING " + joinColumns(uploadColumns)).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build verify upload query: %w", err)
	}

	upload, err = scanUpload(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return upload, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to verify upload: %w", err)
	}

	upload, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return upload, false, nil
}

// ListByStudent returns one page of a student's uploads, newest first
func (r *UploadRepository) ListByStudent(ctx context.Context, studentID int64, offset, limit uint64) ([]*models.Upload, int64, error) {
	return r.page(ctx, squirrel.Eq{"student_id": studentID}, "created_at DESC", offset, limit)
}

// ListPending returns one page of uploads awaiting verification, oldest first
func (r *UploadRepository) ListPending(ctx context.Context, offset, limit uint64) ([]*models.Upload, int64, error) {
	return r.page(ctx, squirrel.Eq{"status": models.UploadPending}, "created_at ASC", offset, limit)
}

func (r *UploadRepository) page(ctx context.Context, where squirrel.Sqlizer, order string, offset, limit uint64) ([]*models.Upload, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("uploads").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count uploads query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting uploads")
		return nil, 0, fmt.Errorf("failed to count uploads: %w", err)
	}
	if total == 0 {
		return []*models.Upload{}, 0, nil
	}

	query, args, err := r.sb.Select(uploadColumns...).
		From("uploads").
		Where(where).
		OrderBy(order, "id").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list uploads query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*models.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return uploads, total, nil
}

// CountOwned counts how many of ids belong to studentID
func (r *UploadRepository) CountOwned(ctx context.Context, studentID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM uploads
		WHERE student_id = $1 AND id = ANY($2)`,
		studentID, ids).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count owned uploads: %w", err)
	}
	return n, nil
}
