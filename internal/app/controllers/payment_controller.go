package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/middleware"
)

// PaymentService is what PaymentController needs
type PaymentService interface {
	Initialize(ctx context.Context, studentID int64, req *dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error)
	Verify(ctx context.Context, actor auth.Actor, reference string) (*dto.VerifyPaymentResponse, error)
}

// PaymentController fronts the payment provider
type PaymentController struct {
	paymentService PaymentService
	logger         zerolog.Logger
}

func NewPaymentController(paymentService PaymentService, logger zerolog.Logger) *PaymentController {
	return &PaymentController{paymentService: paymentService, logger: logger}
}

// Initialize godoc
// @Summary Start a payment
// @Description Creates a provider order and returns where the payer approves it. Amount is in minor units.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InitializePaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=dto.InitializePaymentResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse "Provider failure"
// @Failure 503 {object} dto.ErrorResponse "Provider unavailable"
// @Router /payments/initialize [post]
func (c *PaymentController) Initialize(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	var req dto.InitializePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, err := c.paymentService.Initialize(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: resp})
}

// Verify godoc
// @Summary Verify a payment
// @Description Asks the provider for the order outcome and settles the payment. Settled payments are returned as stored.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Payment reference"
// @Success 200 {object} dto.APIResponse{data=dto.VerifyPaymentResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /payments/verify/{reference} [get]
func (c *PaymentController) Verify(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	resp, err := c.paymentService.Verify(ctx.Request.Context(), actor, ctx.Param("reference"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp})
}
