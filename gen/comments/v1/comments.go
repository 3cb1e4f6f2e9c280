// Package commentsv1 holds the wire messages of devtube.comments.v1. The
// messages are plain structs carried by the JSON codec in
// internal/platform/grpcjson. There is no file descriptor behind the
// service, so it is not exposed through gRPC server reflection.
package commentsv1

import "time"

const (
	AuthorKindAttributed = "attributed"
	AuthorKindAnonymous  = "anonymous"
)

// Author is the flattened author variant. Kind selects which fields are set.
type Author struct {
	Kind        string `json:"kind"`
	AuthorID    string `json:"author_id,omitempty"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type Comment struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"video_id"`
	ParentID      *string   `json:"parent_id,omitempty"`
	Content       string    `json:"content"`
	ContentHTML   string    `json:"content_html,omitempty"`
	IsAnonymous   bool      `json:"is_anonymous"`
	Author        Author    `json:"author"`
	CreatedAt     time.Time `json:"created_at"`
	LikesCount    int       `json:"likes_count"`
	DislikesCount int       `json:"dislikes_count"`
	IsPinned      bool      `json:"is_pinned"`
	IsFlagged     bool      `json:"is_flagged,omitempty"`
	ViewerState   string    `json:"viewer_state,omitempty"`
	CanDelete     bool      `json:"can_delete"`
}

type Report struct {
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type FlaggedComment struct {
	Comment *Comment `json:"comment"`
	Reports []Report `json:"reports"`
}

type SubmitRequest struct {
	VideoID     string  `json:"video_id"`
	Content     string  `json:"content"`
	ParentID    *string `json:"parent_id,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
}

type SubmitResponse struct {
	Comment *Comment `json:"comment"`
}

type DeleteRequest struct {
	CommentID string `json:"comment_id"`
}

type DeleteResponse struct {
	RemovedIDs []string `json:"removed_ids"`
}

type ReactRequest struct {
	CommentID string `json:"comment_id"`
	Kind      string `json:"kind"`
}

type ReactResponse struct {
	LikesCount    int    `json:"likes_count"`
	DislikesCount int    `json:"dislikes_count"`
	ViewerState   string `json:"viewer_state"`
}

type FlagRequest struct {
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason"`
}

// CommentRequest addresses a single comment (Unflag, Pin, Unpin).
type CommentRequest struct {
	CommentID string `json:"comment_id"`
}

type Empty struct{}

type ListRequest struct {
	VideoID string `json:"video_id"`
}

type ListResponse struct {
	Comments []*Comment `json:"comments"`
}

type ListFlaggedRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListFlaggedResponse struct {
	Comments []*FlaggedComment `json:"comments"`
}
