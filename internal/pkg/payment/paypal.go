package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/plutov/paypal/v4"
)

// paypalAPI is the subset of *paypal.Client the adapter uses
type paypalAPI interface {
	CreateOrder(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest, payer *paypal.CreateOrderPayer, app *paypal.ApplicationContext) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
}

const (
	paypalCreated   = "CREATED"
	paypalSaved     = "SAVED"
	paypalApproved  = "APPROVED"
	paypalVoided    = "VOIDED"
	paypalCompleted = "COMPLETED"
	paypalAction    = "PAYER_ACTION_REQUIRED"
)

// PayPalGateway opens checkout orders against the PayPal Orders v2 API
type PayPalGateway struct {
	api paypalAPI
}

func NewPayPalGateway(clientID, secret string, sandbox bool, timeout time.Duration) (*PayPalGateway, error) {
	base := paypal.APIBaseLive
	if sandbox {
		base = paypal.APIBaseSandBox
	}
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}
	c.SetHTTPClient(&http.Client{Timeout: timeout})
	return &PayPalGateway{api: c}, nil
}

func (p *PayPalGateway) Name() string {
	return "paypal"
}

func (p *PayPalGateway) Initialize(ctx context.Context, req InitRequest) (*Order, error) {
	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.Reference,
		Description: req.Description,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: req.Currency,
			Value:    FormatMinor(req.Amount),
		},
	}}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	}

	order, err := p.api.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, classifyPayPal(err)
	}

	status, err := mapPayPalStatus(order.Status)
	if err != nil {
		return nil, err
	}

	out := &Order{ID: order.ID, Status: status}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			out.ApprovalURL = l.Href
			break
		}
	}
	if out.ApprovalURL == "" {
		return nil, Permanent(errors.New("paypal order has no approval link"))
	}
	return out, nil
}

// Verify captures an approved order and reports the result.
func (p *PayPalGateway) Verify(ctx context.Context, orderID string) (Status, error) {
	order, err := p.api.GetOrder(ctx, orderID)
	if err != nil {
		return "", classifyPayPal(err)
	}
	if order.Status != paypalApproved {
		return mapPayPalStatus(order.Status)
	}

	captured, err := p.api.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return "", classifyPayPal(err)
	}
	return mapPayPalStatus(captured.Status)
}

// mapPayPalStatus rejects order states outside the Orders v2 set.
func mapPayPalStatus(s string) (Status, error) {
	switch s {
	case paypalCompleted:
		return StatusCompleted, nil
	case paypalVoided:
		return StatusFailed, nil
	case paypalCreated, paypalSaved, paypalApproved, paypalAction:
		return StatusPending, nil
	default:
		return "", Permanent(fmt.Errorf("unexpected paypal order status %q", s))
	}
}

// classifyPayPal marks client errors other than throttling as permanent.
func classifyPayPal(err error) error {
	var perr *paypal.ErrorResponse
	if errors.As(err, &perr) && perr.Response != nil {
		code := perr.Response.StatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
			return Permanent(err)
		}
	}
	return err
}
