package dto

import "github.com/yigit/studentportal/internal/app/models"

// InitializePaymentRequest starts a checkout. Amount is in minor units.
type InitializePaymentRequest struct {
	Amount   int64             `json:"amount" validate:"required,gt=0,lte=100000000" example:"250000"`
	Purpose  string            `json:"purpose" validate:"required,notblank,max=200" example:"Departmental dues"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,iso4217" example:"USD"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
}

// InitializePaymentResponse tells the client where to approve the payment
type InitializePaymentResponse struct {
	Reference   string               `json:"reference" example:"0b6c8c1e-4b7b-4a53-9a0a-0f0f7d2b3c11"`
	OrderID     string               `json:"orderId" example:"5O190127TN364715T"`
	ApprovalURL string               `json:"approvalUrl,omitempty"`
	Status      models.PaymentStatus `json:"status" example:"INITIALIZED"`
}

// VerifyPaymentResponse reports the settled state of a payment
type VerifyPaymentResponse struct {
	Reference string               `json:"reference"`
	Status    models.PaymentStatus `json:"status" example:"VERIFIED"`
	Amount    int64                `json:"amount"`
	Currency  string               `json:"currency"`
}

// OnlineStudentsResponse is the admin presence counter
type OnlineStudentsResponse struct {
	Count         int64 `json:"count" example:"42"`
	WindowSeconds int64 `json:"windowSeconds" example:"300"`
}
