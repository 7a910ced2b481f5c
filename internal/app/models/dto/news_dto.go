package dto

import (
	"time"

	"github.com/yigit/studentportal/internal/app/models"
)

// NewsPostForm is the multipart form used to create or edit a post.
// Gates are pointers so an omitted field keeps its default or stored value.
type NewsPostForm struct {
	Title          string  `form:"title" binding:"required,max=300"`
	Content        string  `form:"content" binding:"required"`
	Department     *string `form:"department" binding:"omitempty,max=200"`
	AllowLikes     *bool   `form:"allowLikes"`
	AllowComments  *bool   `form:"allowComments"`
	AllowReactions *bool   `form:"allowReactions"`
	RemoveImageIDs []int64 `form:"removeImageIds"`
}

// CommentRequest appends a comment
type CommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000" example:"Congratulations!"`
}

// ReactRequest sets the caller's reaction
type ReactRequest struct {
	Type models.ReactionType `json:"type" validate:"required,reaction" example:"heart"`
}

// NewsListQuery filters the feed
type NewsListQuery struct {
	PageQuery
	Department string `form:"department"`
}

// NewsPostSummary is a feed entry
type NewsPostSummary struct {
	ID             int64                       `json:"id"`
	Title          string                      `json:"title"`
	Content        string                      `json:"content"`
	Department     *string                     `json:"department,omitempty"`
	PosterID       int64                       `json:"posterId"`
	AllowLikes     bool                        `json:"allowLikes"`
	AllowComments  bool                        `json:"allowComments"`
	AllowReactions bool                        `json:"allowReactions"`
	Images         []models.NewsImage          `json:"images"`
	LikeCount      int                         `json:"likeCount"`
	CommentCount   int                         `json:"commentCount"`
	ReactionCounts map[models.ReactionType]int `json:"reactionCounts"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// NewsPostDetail is a post with its full engagement state
type NewsPostDetail struct {
	NewsPostSummary
	LikedBy    []int64               `json:"likedBy"`
	Comments   []models.NewsComment  `json:"comments"`
	Reactions  []models.NewsReaction `json:"reactions"`
	LikedByMe  bool                  `json:"likedByMe"`
	MyReaction *models.ReactionType  `json:"myReaction,omitempty"`
}

// NewNewsPostDetail renders post and eng from the point of view of viewerID.
func NewNewsPostDetail(post *models.NewsPost, eng *models.Engagement, viewerID int64) NewsPostDetail {
	images := post.Images
	if images == nil {
		images = []models.NewsImage{}
	}
	d := NewsPostDetail{
		NewsPostSummary: NewsPostSummary{
			ID:             post.ID,
			Title:          post.Title,
			Content:        post.Content,
			Department:     post.Department,
			PosterID:       post.PosterID,
			AllowLikes:     post.AllowLikes,
			AllowComments:  post.AllowComments,
			AllowReactions: post.AllowReactions,
			Images:         images,
			LikeCount:      eng.LikeCount,
			CommentCount:   eng.CommentCount,
			ReactionCounts: eng.ReactionCounts,
			CreatedAt:      post.CreatedAt,
			UpdatedAt:      post.UpdatedAt,
		},
		LikedBy:   eng.LikedBy,
		Comments:  eng.Comments,
		Reactions: eng.Reactions,
	}
	for _, id := range eng.LikedBy {
		if id == viewerID {
			d.LikedByMe = true
			break
		}
	}
	for i := range eng.Reactions {
		if eng.Reactions[i].UserID == viewerID {
			t := eng.Reactions[i].Type
			d.MyReaction = &t
			break
		}
	}
	return d
}
