package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/auth"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/app/models/dto"
	"github.com/yigit/studentportal/internal/app/repositories"
	"github.com/yigit/studentportal/internal/pkg/apperrors"
	"github.com/yigit/studentportal/internal/pkg/filestorage"
	"github.com/yigit/studentportal/internal/pkg/helpers"
	"github.com/yigit/studentportal/internal/pkg/validation"
	"github.com/yigit/studentportal/internal/pkg/websocket"
)

const (
	newsImageDir          = "news"
	newsImageMaxDimension = 1600
	maxImagesPerPost      = 10
)

// NewsService manages announcements and reader engagement
type NewsService struct {
	newsRepo  newsStore
	userRepo  userStore
	storage   filestorage.FileStorage
	images    *filestorage.ImageProcessor
	policy    filestorage.UploadPolicy
	publisher websocket.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewNewsService(
	newsRepo newsStore,
	userRepo userStore,
	storage filestorage.FileStorage,
	maxImageBytes int64,
	publisher websocket.Publisher,
	logger zerolog.Logger,
) *NewsService {
	if publisher == nil {
		publisher = websocket.NopPublisher{}
	}
	return &NewsService{
		newsRepo:  newsRepo,
		userRepo:  userRepo,
		storage:   storage,
		images:    filestorage.NewImageProcessor(newsImageMaxDimension),
		policy:    filestorage.ImagePolicy(maxImageBytes),
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// gateError maps a closed gate to a ForbiddenError naming the interaction
func gateError(err error, what string) error {
	if errors.Is(err, repositories.ErrGateClosed) {
		return apperrors.NewForbiddenError(what + " are disabled on this post")
	}
	return err
}

// withDepartment fills in the department a department admin moderates
func (s *NewsService) withDepartment(ctx context.Context, actor auth.Actor) (auth.Actor, error) {
	if actor.Role != models.RoleDepartmentAdmin || actor.Department != "" {
		return actor, nil
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return actor, err
	}
	if user.Department != nil {
		actor.Department = *user.Department
	}
	return actor, nil
}

func (s *NewsService) publish(eventType string, post *models.NewsPost, actorID int64, eng *models.Engagement) {
	ev := &websocket.NewsEvent{
		Type:      eventType,
		PostID:    post.ID,
		ActorID:   actorID,
		Timestamp: s.now().UTC(),
	}
	if post.Department != nil {
		ev.Department = *post.Department
	}
	if eng != nil {
		ev.LikeCount = eng.LikeCount
		ev.CommentCount = eng.CommentCount
		ev.ReactionCounts = eng.ReactionCounts
	}
	s.publisher.Publish(ev)
}

func (s *NewsService) detail(ctx context.Context, post *models.NewsPost, viewerID int64) (*dto.NewsPostDetail, *models.Engagement, error) {
	eng, err := s.newsRepo.GetEngagement(ctx, post.ID)
	if err != nil {
		return nil, nil, err
	}
	d := dto.NewNewsPostDetail(post, eng, viewerID)
	return &d, eng, nil
}

// ListPosts returns a page of the feed with engagement counters
func (s *NewsService) ListPosts(ctx context.Context, q *dto.NewsListQuery) (*dto.Page[dto.NewsPostSummary], error) {
	offset, limit := helpers.CalculateOffsetLimit(q.Page, q.PageSize)
	posts, total, err := s.newsRepo.List(ctx, strings.TrimSpace(q.Department), offset, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	counts, err := s.newsRepo.CountEngagement(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]dto.NewsPostSummary, 0, len(posts))
	for _, p := range posts {
		eng, ok := counts[p.ID]
		if !ok {
			eng = &models.Engagement{ReactionCounts: models.CountReactions(nil)}
		}
		items = append(items, dto.NewNewsPostDetail(p, eng, 0).NewsPostSummary)
	}
	page := helpers.NewPage(items, total, q.Page, q.PageSize)
	return &page, nil
}

// GetPost returns a post with its full engagement as seen by viewerID
func (s *NewsService) GetPost(ctx context.Context, viewerID, postID int64) (*dto.NewsPostDetail, error) {
	post, err := s.newsRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	d, _, err := s.detail(ctx, post, viewerID)
	return d, err
}

func checkPostText(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("title is required").WithField("title")
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.NewValidationError("content is required").WithField("content")
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func normalizeDepartment(d *string) *string {
	if d == nil {
		return nil
	}
	t := strings.TrimSpace(*d)
	if t == "" {
		return nil
	}
	return &t
}

// saveImages stores every image or none of them
func (s *NewsService) saveImages(ctx context.Context, files []*multipart.FileHeader) ([]models.NewsImage, error) {
	out := make([]models.NewsImage, 0, len(files))
	for _, fh := range files {
		stored, err := filestorage.SaveImage(ctx, s.storage, s.images, fh, newsImageDir, s.policy)
		if err != nil {
			s.removeImages(out)
			if errors.Is(err, filestorage.ErrFileTooLarge) || errors.Is(err, filestorage.ErrUnsupportedType) {
				return nil, apperrors.NewValidationError(err.Error()).WithField("images")
			}
			return nil, err
		}
		out = append(out, models.NewsImage{FilePath: stored.Path, FileURL: stored.URL})
	}
	return out, nil
}

func (s *NewsService) removeImages(images []models.NewsImage) {
	for _, img := range images {
		if err := s.storage.Delete(img.FilePath); err != nil {
			s.logger.Warn().Err(err).Str("path", img.FilePath).Msg("Failed to delete news image")
		}
	}
}

// CreatePost publishes a post. Department admins post into their own department.
func (s *NewsService) CreatePost(ctx context.Context, actor auth.Actor, form *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkPostText(form.Title, form.Content); err != nil {
		return nil, err
	}
	if len(files) > maxImagesPerPost {
		return nil, apperrors.NewValidationError("a post can have at most 10 images").WithField("images")
	}

	actor, err := s.withDepartment(ctx, actor)
	if err != nil {
		return nil, err
	}
	department, err := postDepartment(actor, form.Department)
	if err != nil {
		return nil, err
	}

	images, err := s.saveImages(ctx, files)
	if err != nil {
		return nil, err
	}

	post := &models.NewsPost{
		Title:          strings.TrimSpace(form.Title),
		Content:        form.Content,
		Department:     department,
		PosterID:       actor.UserID,
		AllowLikes:     boolOr(form.AllowLikes, true),
		AllowComments:  boolOr(form.AllowComments, true),
		AllowReactions: boolOr(form.AllowReactions, true),
		Images:         images,
	}
	if err := s.newsRepo.Create(ctx, post); err != nil {
		s.removeImages(images)
		return nil, err
	}

	s.logger.Info().Int64("postID", post.ID).Int64("posterID", actor.UserID).Msg("News post created")
	d, eng, err := s.detail(ctx, post, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(websocket.EventPostCreated, post, actor.UserID, eng)
	return d, nil
}

// postDepartment resolves the department a post is filed under. Department
// admins are held to their own department.
func postDepartment(actor auth.Actor, requested *string) (*string, error) {
	department := normalizeDepartment(requested)
	if actor.Role != models.RoleDepartmentAdmin {
		return department, nil
	}
	if department != nil && *department != actor.Department {
		return nil, apperrors.NewForbiddenError("department admins can only post to their own department").WithField("department")
	}
	if department == nil && actor.Department != "" {
		department = &actor.Department
	}
	return department, nil
}

// authorize loads the post and checks the actor may change it. The returned
// actor carries its department.
func (s *NewsService) authorize(ctx context.Context, actor auth.Actor, postID int64) (*models.NewsPost, auth.Actor, error) {
	post, err := s.newsRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, actor, err
	}
	actor, err = s.withDepartment(ctx, actor)
	if err != nil {
		return nil, actor, err
	}
	if !auth.CanModifyPost(actor, post) {
		return nil, actor, apperrors.NewForbiddenError("only the poster or an administrator can change this post")
	}
	return post, actor, nil
}

// keptImageCount is the number of images left once removeIDs are dropped.
// IDs that do not belong to the post are ignored.
func keptImageCount(images []models.NewsImage, removeIDs []int64) int {
	remove := make(map[int64]bool, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = true
	}
	kept := 0
	for _, img := range images {
		if !remove[img.ID] {
			kept++
		}
	}
	return kept
}

// UpdatePost replaces the text, department and gates of a post, adds the
// uploaded images and drops the listed ones. Engagement is left untouched.
func (s *NewsService) UpdatePost(ctx context.Context, actor auth.Actor, postID int64, form *dto.NewsPostForm, files []*multipart.FileHeader) (*dto.NewsPostDetail, error) {
	post, actor, err := s.authorize(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := checkPostText(form.Title, form.Content); err != nil {
		return nil, err
	}
	department, err := postDepartment(actor, form.Department)
	if err != nil {
		return nil, err
	}
	if keptImageCount(post.Images, form.RemoveImageIDs)+len(files) > maxImagesPerPost {
		return nil, apperrors.NewValidationError("a post can have at most 10 images").WithField("images")
	}

	added, err := s.saveImages(ctx, files)
	if err != nil {
		return nil, err
	}

	post.Title = strings.TrimSpace(form.Title)
	post.Content = form.Content
	post.Department = department
	post.AllowLikes = boolOr(form.AllowLikes, post.AllowLikes)
	post.AllowComments = boolOr(form.AllowComments, post.AllowComments)
	post.AllowReactions = boolOr(form.AllowReactions, post.AllowReactions)
	post.Images = append(post.Images, added...)

	removed, err := s.newsRepo.Update(ctx, post, form.RemoveImageIDs)
	if err != nil {
		s.removeImages(added)
		return nil, err
	}
	s.removeImages(removed)

	s.logger.Info().Int64("postID", post.ID).Int64("actorID", actor.UserID).Msg("News post updated")
	d, eng, err := s.detail(ctx, post, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(websocket.EventPostUpdated, post, actor.UserID, eng)
	return d, nil
}

// DeletePost removes a post, its engagement and its image files
func (s *NewsService) DeletePost(ctx context.Context, actor auth.Actor, postID int64) error {
	post, _, err := s.authorize(ctx, actor, postID)
	if err != nil {
		return err
	}

	images, err := s.newsRepo.Delete(ctx, postID)
	if err != nil {
		return err
	}
	s.removeImages(images)

	s.logger.Info().Int64("postID", postID).Int64("actorID", actor.UserID).Msg("News post deleted")
	s.publish(websocket.EventPostDeleted, post, actor.UserID, nil)
	return nil
}

// afterInteraction reloads the post so callers get fresh counters
func (s *NewsService) afterInteraction(ctx context.Context, eventType string, postID, userID int64) (*dto.NewsPostDetail, error) {
	post, err := s.newsRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	d, eng, err := s.detail(ctx, post, userID)
	if err != nil {
		return nil, err
	}
	s.publish(eventType, post, userID, eng)
	return d, nil
}

// ToggleLike likes the post or removes an existing like
func (s *NewsService) ToggleLike(ctx context.Context, userID, postID int64) (*dto.NewsPostDetail, error) {
	liked, err := s.newsRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, gateError(err, "likes")
	}
	s.logger.Debug().Int64("postID", postID).Int64("userID", userID).Bool("liked", liked).Msg("Like toggled")
	return s.afterInteraction(ctx, websocket.EventPostLiked, postID, userID)
}

// AddComment appends a comment stamped with the server time
func (s *NewsService) AddComment(ctx context.Context, userID, postID int64, req *dto.CommentRequest) (*dto.NewsPostDetail, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.newsRepo.AddComment(ctx, postID, userID, strings.TrimSpace(req.Content)); err != nil {
		return nil, gateError(err, "comments")
	}
	return s.afterInteraction(ctx, websocket.EventPostCommented, postID, userID)
}

// React sets the caller's reaction, replacing any previous one
func (s *NewsService) React(ctx context.Context, userID, postID int64, req *dto.ReactRequest) (*dto.NewsPostDetail, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := s.newsRepo.UpsertReaction(ctx, postID, userID, req.Type); err != nil {
		return nil, gateError(err, "reactions")
	}
	return s.afterInteraction(ctx, websocket.EventPostReacted, postID, userID)
}
