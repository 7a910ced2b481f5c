package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type statusAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// MidtransGateway opens Snap checkouts. Orders are keyed by our reference,
// so Verify looks them up by the same value.
type MidtransGateway struct {
	snap   snapAPI
	status statusAPI
}

func NewMidtransGateway(serverKey string, sandbox bool) *MidtransGateway {
	env := midtrans.Production
	if sandbox {
		env = midtrans.Sandbox
	}

	var s snap.Client
	s.New(serverKey, env)
	var c coreapi.Client
	c.New(serverKey, env)
	return &MidtransGateway{snap: &s, status: &c}
}

func (m *MidtransGateway) Name() string {
	return "midtrans"
}

func (m *MidtransGateway) Initialize(ctx context.Context, req InitRequest) (*Order, error) {
	// Snap amounts are whole currency units
	gross := req.Amount / 100
	if gross <= 0 {
		return nil, Permanent(errors.New("amount is below the smallest midtrans unit"))
	}

	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.Reference,
			Price: gross,
			Qty:   1,
			Name:  truncate(req.Description, 50),
		}},
		Callbacks: &snap.Callbacks{Finish: req.ReturnURL},
	}

	resp, err := callAsync(ctx, func() (*snap.Response, error) {
		r, merr := m.snap.CreateTransaction(sreq)
		if merr != nil {
			return nil, classifyMidtrans(merr)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return &Order{ID: req.Reference, ApprovalURL: resp.RedirectURL, Status: StatusPending}, nil
}

func (m *MidtransGateway) Verify(ctx context.Context, orderID string) (Status, error) {
	return callAsync(ctx, func() (Status, error) {
		resp, merr := m.status.CheckTransaction(orderID)
		if merr != nil {
			// the customer has not picked a payment method yet
			if merr.StatusCode == http.StatusNotFound {
				return StatusPending, nil
			}
			return "", classifyMidtrans(merr)
		}
		return mapMidtransStatus(resp.TransactionStatus, resp.FraudStatus)
	})
}

func mapMidtransStatus(status, fraud string) (Status, error) {
	switch status {
	case "settlement":
		return StatusCompleted, nil
	case "capture":
		switch fraud {
		case "accept", "":
			return StatusCompleted, nil
		case "deny":
			return StatusFailed, nil
		}
		return StatusPending, nil
	case "pending", "authorize":
		return StatusPending, nil
	case "deny", "cancel", "expire", "failure", "refund", "partial_refund", "chargeback", "partial_chargeback":
		return StatusFailed, nil
	default:
		return "", Permanent(fmt.Errorf("unexpected midtrans transaction status %q", status))
	}
}

func classifyMidtrans(merr *midtrans.Error) error {
	code := merr.StatusCode
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return Permanent(merr)
	}
	return merr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
