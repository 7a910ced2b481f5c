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

// RegistrationService is what RegistrationController needs
type RegistrationService interface {
	Register(ctx context.Context, studentID int64, req *dto.RegisterCoursesRequest) (*dto.RegistrationResponse, bool, error)
	GetMyRegistrations(ctx context.Context, studentID int64) ([]dto.RegistrationResponse, error)
	GetRegistration(ctx context.Context, actor auth.Actor, id int64) (*dto.RegistrationResponse, error)
}

// RegistrationController handles course registration
type RegistrationController struct {
	registrationService RegistrationService
	logger              zerolog.Logger
}

func NewRegistrationController(registrationService RegistrationService, logger zerolog.Logger) *RegistrationController {
	return &RegistrationController{registrationService: registrationService, logger: logger}
}

// Register godoc
// @Summary Register courses for a term
// @Description Records the caller's course selection for one program, level and semester.
// @Description Resubmitting the same courses inside the grace period replaces the attached documents (200).
// @Description Any other resubmission is rejected with 409.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RegisterCoursesRequest true "Course selection"
// @Success 201 {object} dto.APIResponse{data=dto.RegistrationResponse} "Registration recorded"
// @Success 200 {object} dto.APIResponse{data=dto.RegistrationResponse} "Documents replaced within the grace period"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Only students register courses"
// @Failure 404 {object} dto.ErrorResponse "Course or document not found"
// @Failure 409 {object} dto.ErrorResponse "Already registered for this term"
// @Router /courses/register [post]
func (c *RegistrationController) Register(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	if err := auth.RequireStudent(actor); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.RegisterCoursesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	resp, created, err := c.registrationService.Register(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ctx.JSON(status, dto.APIResponse{Data: resp})
}

// GetMyRegistrations godoc
// @Summary List the caller's registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.RegistrationResponse}
// @Router /registrations/me [get]
func (c *RegistrationController) GetMyRegistrations(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	regs, err := c.registrationService.GetMyRegistrations(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: regs})
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Students can read their own registrations, administrators any.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Registration ID"
// @Success 200 {object} dto.APIResponse{data=dto.RegistrationResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /registrations/{id} [get]
func (c *RegistrationController) GetRegistration(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	reg, err := c.registrationService.GetRegistration(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: reg})
}
