package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/db"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/dberrors"
	"github.com/yigit/studentportal/internal/pkg/logger"
)

// ErrRegistrationExists is returned by Create when the student already holds a
// registration for the same program, level and semester.
var ErrRegistrationExists = errors.New("registration already exists for this term")

const registrationTermKey = "course_registrations_student_term_key"

var registrationColumns = []string{
	"id", "student_id", "program_id", "level", "semester",
	"submitted_at", "grace_ends_at", "created_at", "updated_at",
}

// RegistrationRepository persists course registrations and their course links
type RegistrationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRegistrationRepository creates a new RegistrationRepository
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts reg, its course links and document links in one transaction
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.CourseRegistration) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query, args, err := r.sb.Insert("course_registrations").
			Columns("student_id", "program_id", "level", "semester", "submitted_at", "grace_ends_at").
			Values(reg.StudentID, reg.ProgramID, reg.Level, reg.Semester, reg.SubmittedAt, reg.GraceEndsAt).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create registration query: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			if dberrors.IsDuplicateConstraintError(err, registrationTermKey) {
				return ErrRegistrationExists
			}
			logger.Error().Err(err).Int64("studentID", reg.StudentID).Msg("Error creating registration")
			return fmt.Errorf("failed to create registration: %w", err)
		}

		links := r.sb.Insert("course_registration_courses").Columns("registration_id", "course_id")
		for _, id := range reg.CourseIDs {
			links = links.Values(reg.ID, id)
		}
		query, args, err = links.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build course link query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if dberrors.IsForeignKeyError(err) {
				return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found").WithField("courseIds")
			}
			return fmt.Errorf("failed to link courses: %w", err)
		}

		return linkDocuments(ctx, tx, reg.ID, reg.StudentID, reg.DocumentIDs)
	})
}

// ReplaceDocuments swaps the set of uploads attached to a registration
func (r *RegistrationRepository) ReplaceDocuments(ctx context.Context, reg *models.CourseRegistration, documentIDs []int64) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE uploads
			SET registration_id = NULL, updated_at = NOW()
			WHERE registration_id = $1`,
			reg.ID); err != nil {
			return fmt.Errorf("failed to unlink documents: %w", err)
		}

		if err := linkDocuments(ctx, tx, reg.ID, reg.StudentID, documentIDs); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			UPDATE course_registrations
			SET updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`,
			reg.ID).Scan(&reg.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to touch registration: %w", err)
		}
		reg.DocumentIDs = documentIDs
		return nil
	})
}

// linkDocuments attaches the student's uploads to a registration. Uploads
// already attached to another registration are refused.
func linkDocuments(ctx context.Context, tx pgx.Tx, registrationID, studentID int64, documentIDs []int64) error {
	if len(documentIDs) == 0 {
		return nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE uploads
		SET registration_id = $1, updated_at = NOW()
		WHERE id = ANY($2) AND student_id = $3
		  AND (registration_id IS NULL OR registration_id = $1)`,
		registrationID, documentIDs, studentID)
	if err != nil {
		return fmt.Errorf("failed to link documents: %w", err)
	}
	if tag.RowsAffected() == int64(len(documentIDs)) {
		return nil
	}

	var taken int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM uploads
		WHERE id = ANY($1) AND student_id = $2
		  AND registration_id IS NOT NULL AND registration_id <> $3`,
		documentIDs, studentID, registrationID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check document links: %w", err)
	}
	if taken > 0 {
		return apperrors.NewConflictError("one or more documents are attached to another registration").WithField("documentIds")
	}
	return apperrors.NewNotFoundError(apperrors.ErrUploadNotFound, "one or more documents do not exist").WithField("documentIds")
}

func scanRegistration(row pgx.Row) (*models.CourseRegistration, error) {
	var reg models.CourseRegistration
	err := row.Scan(&reg.ID, &reg.StudentID, &reg.ProgramID, &reg.Level, &reg.Semester,
		&reg.SubmittedAt, &reg.GraceEndsAt, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.CourseRegistration, error) {
	query, args, err := r.sb.Select(registrationColumns...).From("course_registrations").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build registration query: %w", err)
	}

	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrRegistrationNotFound, "registration not found")
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	if err := r.loadChildren(ctx, []*models.CourseRegistration{reg}); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetByID retrieves a registration with its course and document ids
func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.CourseRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// FindByTerm retrieves the student's registration for one term
func (r *RegistrationRepository) FindByTerm(ctx context.Context, studentID, programID int64, level int, semester models.Semester) (*models.CourseRegistration, error) {
	return r.getOne(ctx, squirrel.Eq{
		"student_id": studentID,
		"program_id": programID,
		"level":      level,
		"semester":   semester,
	})
}

// ListByStudent returns a student's registrations, newest first
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.CourseRegistration, error) {
	query, args, err := r.sb.Select(registrationColumns...).
		From("course_registrations").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("submitted_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list registrations query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := []*models.CourseRegistration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// loadChildren fills CourseIDs and DocumentIDs with two queries for the batch
func (r *RegistrationRepository) loadChildren(ctx context.Context, regs []*models.CourseRegistration) error {
	if len(regs) == 0 {
		return nil
	}
	byID := make(map[int64]*models.CourseRegistration, len(regs))
	ids := make([]int64, 0, len(regs))
	for _, reg := range regs {
		reg.CourseIDs = []int64{}
		reg.DocumentIDs = []int64{}
		byID[reg.ID] = reg
		ids = append(ids, reg.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT registration_id, course_id
		FROM course_registration_courses
		WHERE registration_id = ANY($1)
		ORDER BY course_id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load registration courses: %w", err)
	}
	for rows.Next() {
		var regID, courseID int64
		if err := rows.Scan(&regID, &courseID); err != nil {
			rows.Close()
			return err
		}
		byID[regID].CourseIDs = append(byID[regID].CourseIDs, courseID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `
		SELECT registration_id, id
		FROM uploads
		WHERE registration_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load registration documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var regID, uploadID int64
		if err := rows.Scan(&regID, &uploadID); err != nil {
			return err
		}
		byID[regID].DocumentIDs = append(byID[regID].DocumentIDs, uploadID)
	}
	return rows.Err()
}
