package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/middleware"
)

// UploadService is what UploadController needs
type UploadService interface {
	Upload(ctx context.Context, studentID int64, req *dto.UploadDocumentRequest, fh *multipart.FileHeader) (*models.Upload, error)
	Replace(ctx context.Context, studentID, uploadID int64, fh *multipart.FileHeader) (*models.Upload, error)
	Verify(ctx context.Context, adminID, uploadID int64) (*models.Upload, error)
	ListMine(ctx context.Context, studentID int64, q dto.PageQuery) (*dto.Page[*models.Upload], error)
	ListPending(ctx context.Context, q dto.PageQuery) (*dto.Page[*models.Upload], error)
}

// UploadController handles registration documents
type UploadController struct {
	uploadService UploadService
	logger        zerolog.Logger
}

func NewUploadController(uploadService UploadService, logger zerolog.Logger) *UploadController {
	return &UploadController{uploadService: uploadService, logger: logger}
}

// formFile returns the uploaded part or nil when the field is absent
func formFile(ctx *gin.Context, field string) *multipart.FileHeader {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}

// Upload godoc
// @Summary Upload a registration document
// @Description Stores a PDF or image (max 10MB) as a PENDING document of the caller.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param documentType formData string true "REGISTRATION_SLIP, FEES_RECEIPT or DEPARTMENTAL_DUES_RECEIPT"
// @Param semester formData string true "First Semester or Second Semester"
// @Param level formData int true "Level"
// @Param file formData file true "Document"
// @Success 201 {object} dto.APIResponse{data=models.Upload}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Only students upload documents"
// @Router /uploads [post]
func (c *UploadController) Upload(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	if err := auth.RequireStudent(actor); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UploadDocumentRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	upload, err := c.uploadService.Upload(ctx.Request.Context(), actor.UserID, &req, formFile(ctx, "file"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: upload})
}

// Replace godoc
// @Summary Replace the file of a pending document
// @Description Allowed for the owner while the document is PENDING and less than 7 days old.
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Upload ID"
// @Param file formData file true "Document"
// @Success 200 {object} dto.APIResponse{data=models.Upload}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Verified or past the edit window"
// @Router /uploads/{id} [put]
func (c *UploadController) Replace(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	upload, err := c.uploadService.Replace(ctx.Request.Context(), actor.UserID, id, formFile(ctx, "file"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: upload})
}

// ListMine godoc
// @Summary List the caller's documents
// @Tags uploads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.UploadListResponse}
// @Router /uploads/me [get]
func (c *UploadController) ListMine(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	page, err := c.uploadService.ListMine(ctx.Request.Context(), actor.UserID, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: page})
}

// ListPending godoc
// @Summary List documents awaiting verification
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.UploadListResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/uploads/pending [get]
func (c *UploadController) ListPending(ctx *gin.Context) {
	var q dto.PageQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	page, err := c.uploadService.ListPending(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: page})
}

// Verify godoc
// @Summary Verify a document
// @Description Marks a PENDING document VERIFIED. Verifying twice returns the document unchanged.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Upload ID"
// @Success 200 {object} dto.APIResponse{data=models.Upload}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/uploads/{id}/verify [patch]
func (c *UploadController) Verify(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	upload, err := c.uploadService.Verify(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: upload})
}
