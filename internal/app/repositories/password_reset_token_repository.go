package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
)

// PasswordResetTokenRepository manages password reset tokens in the database
type PasswordResetTokenRepository struct {
	db *pgxpool.Pool
}

// NewPasswordResetTokenRepository creates a new PasswordResetTokenRepository
func NewPasswordResetTokenRepository(db *pgxpool.Pool) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{
		db: db,
	}
}

// Create stores a new token after discarding the user's earlier unused ones
func (r *PasswordResetTokenRepository) Create(ctx context.Context, userID int64, token string, expiryDate time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM password_reset_tokens
			WHERE user_id = $1 AND used = FALSE`,
			userID); err != nil {
			return fmt.Errorf("error clearing previous reset tokens: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO password_reset_tokens (user_id, token, expiry_date)
			VALUES ($1, $2, $3)`,
			userID, token, expiryDate); err != nil {
			return fmt.Errorf("error creating password reset token: %w", err)
		}
		return nil
	})
}

// Get retrieves a token by its value
func (r *PasswordResetTokenRepository) Get(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, expiry_date, used, created_at
		FROM password_reset_tokens
		WHERE token = $1`,
		token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiryDate, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrResetTokenNotFound, "reset token not found")
		}
		return nil, fmt.Errorf("error retrieving password reset token: %w", err)
	}
	return &t, nil
}

// MarkUsed flags an unused token as used. It reports false when the token was
// already consumed, so two concurrent resets cannot both succeed.
func (r *PasswordResetTokenRepository) MarkUsed(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE token = $1 AND used = FALSE`,
		token)
	if err != nil {
		return false, fmt.Errorf("error marking token as used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
