package controllers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/middleware"
)

// NewsService is what NewsController needs
type NewsService interface {
	ListPosts(ctx context.Context, q *dto.NewsListQuery) (*dto.Page[dto.NewsPostSummary], error)
	GetPost(ctx context.Context, viewerID, postID int64) (*dto.NewsPostDetail, error)
	CreatePost(ctx context.Context, actor auth.Actor, form *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error)
	UpdatePost(ctx context.Context, actor auth.Actor, postID int64, form *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error)
	DeletePost(ctx context.Context, actor auth.Actor, postID int64) error
	ToggleLike(ctx context.Context, userID, postID int64) (*dto.NewsPostDetail, error)
	AddComment(ctx context.Context, userID, postID int64, req *dto.CommentRequest) (*dto.NewsPostDetail, error)
	React(ctx context.Context, userID, postID int64, req *dto.ReactRequest) (*dto.NewsPostDetail, error)
}

// NewsController serves the news feed and its interactions
type NewsController struct {
	newsService NewsService
	logger      zerolog.Logger
}

func NewNewsController(newsService NewsService, logger zerolog.Logger) *NewsController {
	return &NewsController{newsService: newsService, logger: logger}
}

// formImages returns the files posted under "images"
func formImages(ctx *gin.Context) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["images"]
}

// ListPosts godoc
// @Summary List news posts
// @Description Newest first. With a department, posts for that department and posts without one.
// @Tags news
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.Page[dto.NewsPostSummary]}
// @Router /news [get]
func (c *NewsController) ListPosts(ctx *gin.Context) {
	var q dto.NewsListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	page, err := c.newsService.ListPosts(ctx.Request.Context(), &q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: page})
}

// GetPost godoc
// @Summary Get a news post with comments and reactions
// @Tags news
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id} [get]
func (c *NewsController) GetPost(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	post, err := c.newsService.GetPost(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: post})
}

// CreatePost godoc
// @Summary Publish a news post
// @Description Administrators only. Gates default to open. Images are downscaled before storage.
// @Tags news
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param department formData string false "Department"
// @Param allowLikes formData bool false "Allow likes"
// @Param allowComments formData bool false "Allow comments"
// @Param allowReactions formData bool false "Allow reactions"
// @Param images formData file false "Images"
// @Success 201 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /news [post]
func (c *NewsController) CreatePost(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	var form dto.NewsPostForm
	if err := ctx.ShouldBind(&form); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	post, err := c.newsService.CreatePost(ctx.Request.Context(), actor, &form, formImages(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: post})
}

// UpdatePost godoc
// @Summary Edit a news post
// @Description Allowed for the poster, any ADMIN, or a DEPARTMENT_ADMIN of the post's department.
// @Description Omitted gates keep their value. Likes, comments and reactions are preserved.
// @Tags news
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param department formData string false "Department"
// @Param allowLikes formData bool false "Allow likes"
// @Param allowComments formData bool false "Allow comments"
// @Param allowReactions formData bool false "Allow reactions"
// @Param removeImageIds formData []int false "Images to drop"
// @Param images formData file false "Images to add"
// @Success 200 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id} [put]
func (c *NewsController) UpdatePost(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var form dto.NewsPostForm
	if err := ctx.ShouldBind(&form); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	post, err := c.newsService.UpdatePost(ctx.Request.Context(), actor, id, &form, formImages(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: post})
}

// DeletePost godoc
// @Summary Delete a news post
// @Description Removes the post with its comments, likes, reactions and images.
// @Tags news
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id} [delete]
func (c *NewsController) DeletePost(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.newsService.DeletePost(ctx.Request.Context(), actor, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ToggleLike godoc
// @Summary Like or unlike a post
// @Tags news
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 403 {object} dto.ErrorResponse "Likes are disabled"
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id}/like [post]
func (c *NewsController) ToggleLike(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	post, err := c.newsService.ToggleLike(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: post})
}

// AddComment godoc
// @Summary Comment on a post
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body dto.CommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 400 {object} dto.ErrorResponse "Blank comment"
// @Failure 403 {object} dto.ErrorResponse "Comments are disabled"
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id}/comment [post]
func (c *NewsController) AddComment(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	post, err := c.newsService.AddComment(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: post})
}

// React godoc
// @Summary React to a post
// @Description Sets the caller's reaction, replacing any earlier one.
// @Tags news
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body dto.ReactRequest true "Reaction"
// @Success 200 {object} dto.APIResponse{data=dto.NewsPostDetail}
// @Failure 400 {object} dto.ErrorResponse "Unknown reaction"
// @Failure 403 {object} dto.ErrorResponse "Reactions are disabled"
// @Failure 404 {object} dto.ErrorResponse
// @Router /news/{id}/react [post]
func (c *NewsController) React(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	post, err := c.newsService.React(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: post})
}
