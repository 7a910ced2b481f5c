package payment

import (
	"context"
	"errors"
	"fmt"
)

// Status is the provider-neutral state of an order
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// InitRequest describes a checkout to open with a provider
type InitRequest struct {
	Reference   string // our idempotency key, echoed back by the provider
	Amount      int64  // minor units
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

// Order is what the provider handed back for an InitRequest
type Order struct {
	ID          string
	ApprovalURL string
	Status      Status
}

// Gateway is a payment provider. Implementations honour ctx for cancellation.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitRequest) (*Order, error)
	// Verify reports the settled state of orderID, capturing it when the
	// provider requires an explicit capture.
	Verify(ctx context.Context, orderID string) (Status, error)
}

// permanentError marks a provider failure that retrying cannot fix
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the retry loop gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// FormatMinor renders minor units as a decimal string with two fraction digits.
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// callAsync runs fn, which cannot observe ctx, on its own goroutine and stops
// waiting when ctx is done.
func callAsync[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}
