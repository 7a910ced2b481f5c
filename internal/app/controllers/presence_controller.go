package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/middleware"
)

// PresenceService is what PresenceController needs
type PresenceService interface {
	Heartbeat(ctx context.Context, userID int64, role models.RoleType) error
	CountOnline(ctx context.Context) (int64, error)
	Window() time.Duration
}

// PresenceController records heartbeats and reports online students
type PresenceController struct {
	presenceService PresenceService
	logger          zerolog.Logger
}

func NewPresenceController(presenceService PresenceService, logger zerolog.Logger) *PresenceController {
	return &PresenceController{presenceService: presenceService, logger: logger}
}

// Heartbeat godoc
// @Summary Record activity
// @Description Marks the caller as online for the presence window.
// @Tags presence
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Router /presence/heartbeat [post]
func (c *PresenceController) Heartbeat(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	if err := c.presenceService.Heartbeat(ctx.Request.Context(), actor.UserID, actor.Role); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.SuccessResponse{Message: "ok"}})
}

// OnlineStudents godoc
// @Summary Count online students
// @Description Students with a heartbeat inside the presence window.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.OnlineStudentsResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/online-students [get]
func (c *PresenceController) OnlineStudents(ctx *gin.Context) {
	n, err := c.presenceService.CountOnline(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.OnlineStudentsResponse{
		Count:         n,
		WindowSeconds: int64(c.presenceService.Window().Seconds()),
	}})
}
