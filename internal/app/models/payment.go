package models

import "time"

// PaymentStatus of a locally tracked payment
type PaymentStatus string

const (
	PaymentInitialized PaymentStatus = "INITIALIZED"
	PaymentVerified    PaymentStatus = "VERIFIED"
	PaymentFailed      PaymentStatus = "FAILED"
)

// Terminal reports whether the status may no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentVerified || s == PaymentFailed
}

// Payment mirrors an order created with a payment provider
type Payment struct {
	ID              int64             `json:"id" db:"id"`
	Reference       string            `json:"reference" db:"reference"`
	StudentID       int64             `json:"studentId" db:"student_id"`
	Provider        string            `json:"provider" db:"provider"`
	ProviderOrderID string            `json:"orderId" db:"provider_order_id"`
	Amount          int64             `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Purpose         string            `json:"purpose" db:"purpose"`
	Status          PaymentStatus     `json:"status" db:"status"`
	ApprovalURL     *string           `json:"approvalUrl,omitempty" db:"approval_url"`
	Metadata        map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	VerifiedAt      *time.Time        `json:"verifiedAt,omitempty" db:"verified_at"`
}
