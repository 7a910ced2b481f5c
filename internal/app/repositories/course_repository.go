package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/dberrors"
	"github.com/yigit/studentportal/internal/pkg/logger"
)

var courseColumns = []string{
	"id", "program_id", "code", "title", "units", "level", "semester", "created_at", "updated_at",
}

// CourseRepository handles course catalog database operations
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.ProgramID, &c.Code, &c.Title, &c.Units, &c.Level, &c.Semester, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func courseWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "courses_program_level_semester_code_key"):
		return apperrors.NewConflictError("a course with this code is already offered for that program, level and semester").WithField("code")
	case dberrors.IsForeignKeyError(err):
		return apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found").WithField("programId")
	}
	return nil
}

func (r *CourseRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Course, error) {
	query, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building course SQL")
		return nil, fmt.Errorf("failed to build course query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing course query")
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// FindOffered returns the courses offered for one program, level and
// semester, ordered by code then id.
func (r *CourseRepository) FindOffered(ctx context.Context, programID int64, level int, semester models.Semester) ([]*models.Course, error) {
	return r.query(ctx, r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"program_id": programID, "level": level, "semester": semester}).
		OrderBy("code", "id"))
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	query, args, err := r.sb.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	query, args, err := r.sb.Insert("courses").
		Columns("program_id", "code", "title", "units", "level", "semester").
		Values(c.ProgramID, c.Code, c.Title, c.Units, c.Level, c.Semester).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if mapped := courseWriteError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("code", c.Code).Msg("Error creating course")
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a course
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	query, args, err := r.sb.Update("courses").
		Set("program_id", c.ProgramID).
		Set("code", c.Code).
		Set("title", c.Title).
		Set("units", c.Units).
		Set("level", c.Level).
		Set("semester", c.Semester).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
		}
		if mapped := courseWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

// Delete removes a course that no registration references
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewConflictError("course is referenced by existing registrations")
		}
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(apperrors.ErrCourseNotFound, "course not found")
	}
	return nil
}
