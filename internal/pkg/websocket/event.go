package websocket

import (
	"time"

	"github.com/yigit/studentportal/internal/app/models"
)

// Event types pushed to news feed subscribers
const (
	EventPostCreated   = "post.created"
	EventPostUpdated   = "post.updated"
	EventPostDeleted   = "post.deleted"
	EventPostLiked     = "post.liked"
	EventPostCommented = "post.commented"
	EventPostReacted   = "post.reacted"
)

// NewsEvent is a single engagement change on a news post
type NewsEvent struct {
	Type           string                      `json:"type"`
	PostID         int64                       `json:"postId"`
	ActorID        int64                       `json:"actorId"`
	Department     string                      `json:"department,omitempty"`
	LikeCount      int                         `json:"likeCount"`
	CommentCount   int                         `json:"commentCount"`
	ReactionCounts map[models.ReactionType]int `json:"reactionCounts,omitempty"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// Publisher accepts news events for fan-out
type Publisher interface {
	Publish(event *NewsEvent)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(*NewsEvent) {}
