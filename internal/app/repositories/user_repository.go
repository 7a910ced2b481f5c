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
	"github.com/yigit/studentportal/internal/pkg/dberrors"
	"github.com/yigit/studentportal/internal/pkg/logger"
)

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "role_type",
	"program_id", "department", "matric_number", "is_active",
	"last_seen_at", "last_login_at", "created_at", "updated_at",
}

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.RoleType,
		&u.ProgramID, &u.Department, &u.MatricNumber, &u.IsActive,
		&u.LastSeenAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts user and fills in its generated fields
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query, args, err := r.sb.Insert("users").
		Columns("email", "password_hash", "first_name", "last_name", "role_type",
			"program_id", "department", "matric_number", "is_active").
		Values(user.Email, user.Password, user.FirstName, user.LastName, user.RoleType,
			user.ProgramID, user.Department, user.MatricNumber, user.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
			return apperrors.NewConflictError("an account with this email already exists").WithField("email")
		case dberrors.IsDuplicateConstraintError(err, "users_matric_number_key"):
			return apperrors.NewConflictError("an account with this matric number already exists").WithField("matricNumber")
		case dberrors.IsForeignKeyError(err):
			return apperrors.NewNotFoundError(apperrors.ErrProgramNotFound, "program not found").WithField("programId")
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error creating user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrUserNotFound, "user not found")
		}
		logger.Error().Err(err).Msg("Error retrieving user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(email) = LOWER(?)", email))
}

// UpdatePassword stores a new bcrypt hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2`,
		hash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(apperrors.ErrUserNotFound, "user not found")
	}
	return nil
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET last_login_at = NOW()
		WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}
	return nil
}

// UpdateLastSeen sets or clears last_seen_at. A nil at marks the user offline.
func (r *UserRepository) UpdateLastSeen(ctx context.Context, userID int64, at *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET last_seen_at = $1
		WHERE id = $2`,
		at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	return nil
}

// CountStudentsSeenSince counts active students with a heartbeat at or after since
func (r *UserRepository) CountStudentsSeenSince(ctx context.Context, since time.Time) (int64, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"role_type": models.RoleStudent, "is_active": true}).
		Where(squirrel.GtOrEq{"last_seen_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build presence count query: %w", err)
	}

	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error counting online students")
		return 0, fmt.Errorf("failed to count online students: %w", err)
	}
	return n, nil
}
