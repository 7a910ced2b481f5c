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
	"github.com/yigit/studentportal/internal/pkg/logger"
)

var paymentColumns = []string{
	"id", "reference::text", "student_id", "provider", "provider_order_id", "amount", "currency",
	"purpose", "status", "approval_url", "metadata", "created_at", "verified_at",
}

// PaymentRepository stores the local mirror of provider orders
type PaymentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Reference, &p.StudentID, &p.Provider, &p.ProviderOrderID, &p.Amount, &p.Currency,
		&p.Purpose, &p.Status, &p.ApprovalURL, &p.Metadata, &p.CreatedAt, &p.VerifiedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts an INITIALIZED payment
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	query, args, err := r.sb.Insert("payments").
		Columns("reference", "student_id", "provider", "provider_order_id", "amount", "currency",
			"purpose", "status", "approval_url", "metadata").
		Values(p.Reference, p.StudentID, p.Provider, p.ProviderOrderID, p.Amount, p.Currency,
			p.Purpose, models.PaymentInitialized, p.ApprovalURL, metadata).
		Suffix("RETURNING id, status, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create payment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Status, &p.CreatedAt); err != nil {
		logger.Error().Err(err).Str("reference", p.Reference).Msg("Error creating payment")
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByReference retrieves a payment by its public reference
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	query, args, err := r.sb.Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"reference": reference}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get payment query: %w", err)
	}

	p, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrPaymentNotFound, "payment not found")
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// Settle moves an INITIALIZED payment to a terminal status. The write is
// conditional, so the returned row reflects whichever settlement landed
// first and a terminal status is never overwritten.
func (r *PaymentRepository) Settle(ctx context.Context, reference string, status models.PaymentStatus) (*models.Payment, error) {
	query, args, err := r.sb.Update("payments").
		Set("status", status).
		Set("verified_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"reference": reference}).
		Where(squirrel.Eq{"status": models.PaymentInitialized}).
		Suffix("RETURNING " + joinColumns(paymentColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build settle payment query: %w", err)
	}

	p, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Str("reference", reference).Msg("Error settling payment")
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}
	return r.GetByReference(ctx, reference)
}
