package models

import "time"

// ReactionType is one of the emoji reactions a reader can leave
type ReactionType string

const (
	ReactionSmile    ReactionType = "smile"
	ReactionHeart    ReactionType = "heart"
	ReactionThumbsUp ReactionType = "thumbsUp"
	ReactionWow      ReactionType = "wow"
	ReactionSad      ReactionType = "sad"
)

// ReactionTypes lists the accepted reactions in display order
var ReactionTypes = []ReactionType{ReactionSmile, ReactionHeart, ReactionThumbsUp, ReactionWow, ReactionSad}

func (r ReactionType) Valid() bool {
	for _, t := range ReactionTypes {
		if t == r {
			return true
		}
	}
	return false
}

// NewsPost is an announcement with its engagement gates
type NewsPost struct {
	ID             int64       `json:"id" db:"id"`
	Title          string      `json:"title" db:"title"`
	Content        string      `json:"content" db:"content"`
	Department     *string     `json:"department,omitempty" db:"department"`
	PosterID       int64       `json:"posterId" db:"poster_id"`
	AllowLikes     bool        `json:"allowLikes" db:"allow_likes"`
	AllowComments  bool        `json:"allowComments" db:"allow_comments"`
	AllowReactions bool        `json:"allowReactions" db:"allow_reactions"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
	Images         []NewsImage `json:"images"`
}

// NewsImage is a stored picture attached to a post
type NewsImage struct {
	ID       int64  `json:"id" db:"id"`
	PostID   int64  `json:"postId" db:"post_id"`
	FilePath string `json:"-" db:"file_path"`
	FileURL  string `json:"fileUrl" db:"file_url"`
}

// NewsComment is append-only
type NewsComment struct {
	ID        int64     `json:"id" db:"id"`
	PostID    int64     `json:"postId" db:"post_id"`
	AuthorID  int64     `json:"authorId" db:"author_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewsReaction is the single reaction a user holds on a post
type NewsReaction struct {
	PostID int64        `json:"postId" db:"post_id"`
	UserID int64        `json:"userId" db:"user_id"`
	Type   ReactionType `json:"type" db:"type"`
}

// Engagement is the aggregated state of a post's sub-collections
type Engagement struct {
	LikeCount      int                  `json:"likeCount"`
	LikedBy        []int64              `json:"likedBy"`
	CommentCount   int                  `json:"commentCount"`
	Comments       []NewsComment        `json:"comments"`
	Reactions      []NewsReaction       `json:"reactions"`
	ReactionCounts map[ReactionType]int `json:"reactionCounts"`
}

// CountReactions tallies reactions per type, including zero entries.
func CountReactions(reactions []NewsReaction) map[ReactionType]int {
	counts := make(map[ReactionType]int, len(ReactionTypes))
	for _, t := range ReactionTypes {
		counts[t] = 0
	}
	for _, r := range reactions {
		counts[r.Type]++
	}
	return counts
}
