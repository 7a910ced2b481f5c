package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/dberrors"
)

// ProgramRepository handles database operations for programs
type ProgramRepository struct {
	db *pgxpool.Pool
}

// NewProgramRepository creates a new program repository
func NewProgramRepository(db *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{
		db: db,
	}
}

func duplicateProgram(err error) error {
	if dberrors.IsDuplicateConstraintError(err, "programs_code_key") {
		return apperrors.NewConflictError("a program with this code already exists").WithField("code")
	}
	return nil
}

// Create creates a new program
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO programs (name, code)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		program.Name, program.Code).Scan(&program.ID, &program.CreatedAt, &program.UpdatedAt)
	if err != nil {
		if dup := duplicateProgram(err); dup != nil {
			return dup
		}
		return fmt.Errorf("error creating program: %w", err)
	}
	return nil
}

// GetByID retrieves a program by ID
func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*models.Program, error) {
	var p models.Program
	err := r.db.QueryRow(ctx, `
		SELECT id, name, code, created_at, updated_at
		FROM programs
		WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &p.Code, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found")
		}
		return nil, fmt.Errorf("error retrieving program: %w", err)
	}
	return &p, nil
}

// GetAll retrieves all programs ordered by name
func (r *ProgramRepository) GetAll(ctx context.Context) ([]*models.Program, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, code, created_at, updated_at
		FROM programs
		ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing programs: %w", err)
	}
	defer rows.Close()

	programs := []*models.Program{}
	for rows.Next() {
		var p models.Program
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		programs = append(programs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return programs, nil
}

// Update updates an existing program
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	err := r.db.QueryRow(ctx, `
		UPDATE programs
		SET name = $1, code = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at`,
		program.Name, program.Code, program.ID).Scan(&program.CreatedAt, &program.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found")
		}
		if dup := duplicateProgram(err); dup != nil {
			return dup
		}
		return fmt.Errorf("error updating program: %w", err)
	}
	return nil
}
