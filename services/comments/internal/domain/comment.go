// Package domain holds the comment model shared by storage, thread
// structure, reactions, moderation and the service façade.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxContentLength = 2000
	MaxReasonLength  = 500
)

// Comment is one node of a video's comment forest.
type Comment struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"video_id"`
	AuthorID      string    `json:"author_id"`
	Content       string    `json:"content"`
	IsAnonymous   bool      `json:"is_anonymous"`
	ParentID      *string   `json:"parent_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LikesCount    int       `json:"likes_count"`
	DislikesCount int       `json:"dislikes_count"`
	IsFlagged     bool      `json:"is_flagged"`
	IsPinned      bool      `json:"is_pinned"`
	IsTombstoned  bool      `json:"is_tombstoned"`
}

func (c Comment) IsRoot() bool { return c.ParentID == nil }

// Report is one reporter's flag on a comment. At most one per reporter.
type Report struct {
	CommentID  string    `json:"comment_id"`
	ReporterID string    `json:"reporter_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Video is the catalog's view of a video as far as comments care.
type Video struct {
	ID        string `json:"id"`
	CreatorID string `json:"creator_id"`
}

// Profile is the public identity shown next to attributed comments.
type Profile struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NormalizeContent trims content and enforces the 1..MaxContentLength
// character bound.
func NormalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if !utf8.ValidString(content) {
		return "", &ValidationError{Field: "content", Reason: "must be valid UTF-8"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &ValidationError{Field: "content", Reason: "must be at most 2000 characters"}
	}
	return content, nil
}

// NormalizeReason trims a report reason; empty is allowed.
func NormalizeReason(raw string) (string, error) {
	reason := strings.TrimSpace(raw)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return "", &ValidationError{Field: "reason", Reason: "must be at most 500 characters"}
	}
	return reason, nil
}
