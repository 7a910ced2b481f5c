package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/payment"
)

var studentActor = auth.Actor{UserID: 1, Role: models.RoleStudent}

func newPaymentFixture() (*PaymentService, *fakePayments, *stubGateway) {
	repo := newFakePayments()
	gw := &stubGateway{status: payment.StatusPending}
	svc := NewPaymentService(repo, gw, PaymentOptions{
		Currency:  "USD",
		ReturnURL: "https://portal.example/payments/return",
		CancelURL: "https://portal.example/payments/cancel?src=checkout",
	}, zerolog.Nop())
	return svc, repo, gw
}

func initialize(t *testing.T, svc *PaymentService) *dto.InitializePaymentResponse {
	t.Helper()
	resp, err := svc.Initialize(context.Background(), 1, &dto.InitializePaymentRequest{
		Amount:   250000,
		Purpose:  "Departmental dues",
		Metadata: map[string]string{"session": "2025/2026"},
	})
	require.NoError(t, err)
	return resp
}

func TestInitializePayment(t *testing.T) {
	svc, repo, gw := newPaymentFixture()

	resp := initialize(t, svc)
	assert.Equal(t, models.PaymentInitialized, resp.Status)
	assert.Equal(t, "https://pay.example/approve", resp.ApprovalURL)
	assert.NotEmpty(t, resp.OrderID)

	stored := repo.payments[resp.Reference]
	require.NotNil(t, stored)
	assert.Equal(t, "stub", stored.Provider)
	assert.Equal(t, "USD", stored.Currency)
	assert.Equal(t, int64(250000), stored.Amount)
	assert.Equal(t, "2025/2026", stored.Metadata["session"])

	assert.Equal(t, resp.Reference, gw.lastInit.Reference)
	assert.Equal(t, "https://portal.example/payments/return?reference="+resp.Reference, gw.lastInit.ReturnURL)
	assert.Contains(t, gw.lastInit.CancelURL, "src=checkout")
	assert.Contains(t, gw.lastInit.CancelURL, "reference="+resp.Reference)
}

func TestInitializePaymentValidation(t *testing.T) {
	svc, repo, _ := newPaymentFixture()

	tests := []struct {
		name string
		req  dto.InitializePaymentRequest
	}{
		{"zero amount", dto.InitializePaymentRequest{Amount: 0, Purpose: "Dues"}},
		{"negative amount", dto.InitializePaymentRequest{Amount: -5, Purpose: "Dues"}},
		{"amount above limit", dto.InitializePaymentRequest{Amount: 100000001, Purpose: "Dues"}},
		{"blank purpose", dto.InitializePaymentRequest{Amount: 100, Purpose: "   "}},
		{"bad currency", dto.InitializePaymentRequest{Amount: 100, Purpose: "Dues", Currency: "XXXX"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Initialize(context.Background(), 1, &tt.req)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}
	assert.Empty(t, repo.payments)
}

func TestInitializePaymentUpstreamFailure(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	gw.initErr = apperrors.NewUpstreamError("payment provider stub did not respond successfully", nil)

	_, err := svc.Initialize(context.Background(), 1, &dto.InitializePaymentRequest{Amount: 100, Purpose: "Dues"})
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Empty(t, repo.payments)
}

func TestVerifyPayment(t *testing.T) {
	tests := []struct {
		name     string
		provider payment.Status
		want     models.PaymentStatus
		settles  int
	}{
		{"completed", payment.StatusCompleted, models.PaymentVerified, 1},
		{"failed", payment.StatusFailed, models.PaymentFailed, 1},
		{"still pending", payment.StatusPending, models.PaymentInitialized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, gw := newPaymentFixture()
			ref := initialize(t, svc).Reference
			gw.status = tt.provider

			resp, err := svc.Verify(context.Background(), studentActor, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.settles, repo.settles)
		})
	}
}

func TestVerifyTerminalPaymentSkipsProvider(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	ref := initialize(t, svc).Reference
	gw.status = payment.StatusCompleted

	_, err := svc.Verify(context.Background(), studentActor, ref)
	require.NoError(t, err)
	require.Equal(t, 1, gw.verifyCalls)

	// a later provider answer must not regress the stored state
	gw.status = payment.StatusFailed
	resp, err := svc.Verify(context.Background(), studentActor, ref)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, resp.Status)
	assert.Equal(t, 1, gw.verifyCalls)
	assert.Equal(t, models.PaymentVerified, repo.payments[ref].Status)
}

func TestVerifyPaymentErrors(t *testing.T) {
	svc, _, gw := newPaymentFixture()
	ref := initialize(t, svc).Reference

	_, err := svc.Verify(context.Background(), studentActor, "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)

	_, err = svc.Verify(context.Background(), studentActor, "0b6c8c1e-4b7b-4a53-9a0a-0f0f7d2b3c11")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)

	_, err = svc.Verify(context.Background(), auth.Actor{UserID: 2, Role: models.RoleStudent}, ref)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	gw.verifyErr = apperrors.NewUnavailableError("payment provider is temporarily unavailable")
	_, err = svc.Verify(context.Background(), auth.Actor{UserID: 9, Role: models.RoleAdmin}, ref)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}
