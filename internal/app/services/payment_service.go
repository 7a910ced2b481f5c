package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/payment"
	"github.com/yigit/studentportal/internal/pkg/validation"
)

// PaymentOptions configure how checkouts are opened
type PaymentOptions struct {
	Currency  string
	ReturnURL string
	CancelURL string
}

// PaymentService opens checkouts with the configured provider and settles
// them once. Provider calls go through a resilient payment.Gateway.
type PaymentService struct {
	paymentRepo paymentStore
	gateway     payment.Gateway
	opts        PaymentOptions
	logger      zerolog.Logger
}

func NewPaymentService(paymentRepo paymentStore, gateway payment.Gateway, opts PaymentOptions, logger zerolog.Logger) *PaymentService {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		gateway:     gateway,
		opts:        opts,
		logger:      logger,
	}
}

// withReference appends the payment reference to a redirect URL
func withReference(raw, reference string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("reference", reference)
	u.RawQuery = q.Encode()
	return u.String()
}

// Initialize creates a provider order for studentID and records it as INITIALIZED
func (s *PaymentService) Initialize(ctx context.Context, studentID int64, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.opts.Currency
	}
	reference := uuid.NewString()
	purpose := strings.TrimSpace(req.Purpose)

	order, err := s.gateway.Initialize(ctx, payment.InitRequest{
		Reference:   reference,
		Amount:      req.Amount,
		Currency:    currency,
		Description: purpose,
		ReturnURL:   withReference(s.opts.ReturnURL, reference),
		CancelURL:   withReference(s.opts.CancelURL, reference),
	})
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		Reference:       reference,
		StudentID:       studentID,
		Provider:        s.gateway.Name(),
		ProviderOrderID: order.ID,
		Amount:          req.Amount,
		Currency:        currency,
		Purpose:         purpose,
		Metadata:        req.Metadata,
	}
	if order.ApprovalURL != "" {
		p.ApprovalURL = &order.ApprovalURL
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		// the provider order is left to expire on its side
		s.logger.Error().Err(err).
			Str("reference", reference).
			Str("orderID", order.ID).
			Msg("Failed to record initialized payment")
		return nil, err
	}

	s.logger.Info().
		Str("reference", reference).
		Str("provider", p.Provider).
		Str("orderID", order.ID).
		Int64("studentID", studentID).
		Int64("amount", req.Amount).
		Msg("Payment initialized")
	return &dto.InitializePaymentResponse{
		Reference:   reference,
		OrderID:     order.ID,
		ApprovalURL: order.ApprovalURL,
		Status:      p.Status,
	}, nil
}

// Verify asks the provider about a payment that is not settled yet and
// records the outcome. Settled payments are answered from storage.
func (s *PaymentService) Verify(ctx context.Context, actor auth.Actor, reference string) (*dto.VerifyPaymentResponse, error) {
	if _, err := uuid.Parse(reference); err != nil {
		return nil, apperrors.NewNotFoundError(apperrors.ErrPaymentNotFound, "payment not found")
	}

	p, err := s.paymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessOwned(actor, p.StudentID) {
		return nil, apperrors.NewForbiddenError("you can only verify your own payments")
	}
	if p.Status.Terminal() {
		return verifyResponse(p), nil
	}

	status, err := s.gateway.Verify(ctx, p.ProviderOrderID)
	if err != nil {
		return nil, err
	}

	var next models.PaymentStatus
	switch status {
	case payment.StatusCompleted:
		next = models.PaymentVerified
	case payment.StatusFailed:
		next = models.PaymentFailed
	default:
		return verifyResponse(p), nil
	}

	settled, err := s.paymentRepo.Settle(ctx, reference, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("reference", reference).
		Str("status", string(settled.Status)).
		Msg("Payment settled")
	return verifyResponse(settled), nil
}

func verifyResponse(p *models.Payment) *dto.VerifyPaymentResponse {
	return &dto.VerifyPaymentResponse{
		Reference: p.Reference,
		Status:    p.Status,
		Amount:    p.Amount,
		Currency:  p.Currency,
	}
}
