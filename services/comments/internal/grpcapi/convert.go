package grpcapi

import (
	commentsv1 "github.com/example/devtube/gen/comments/v1"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/moderation"
)

func authorToWire(a moderation.AuthorView) commentsv1.Author {
	switch v := a.(type) {
	case moderation.AttributedView:
		return commentsv1.Author{
			Kind:      commentsv1.AuthorKindAttributed,
			AuthorID:  v.AuthorID,
			Username:  v.Username,
			AvatarURL: v.AvatarURL,
		}
	case moderation.AnonymizedView:
		return commentsv1.Author{Kind: commentsv1.AuthorKindAnonymous, DisplayName: v.DisplayName}
	default:
		return commentsv1.Author{}
	}
}

func commentToWire(v moderation.CommentView) *commentsv1.Comment {
	return &commentsv1.Comment{
		ID:            v.ID,
		VideoID:       v.VideoID,
		ParentID:      v.ParentID,
		Content:       v.Content,
		ContentHTML:   v.ContentHTML,
		IsAnonymous:   v.IsAnonymous,
		Author:        authorToWire(v.Author),
		CreatedAt:     v.CreatedAt,
		LikesCount:    v.LikesCount,
		DislikesCount: v.DislikesCount,
		IsPinned:      v.IsPinned,
		IsFlagged:     v.IsFlagged,
		ViewerState:   string(v.ViewerState),
		CanDelete:     v.CanDelete,
	}
}

func reportsToWire(rs []domain.Report) []commentsv1.Report {
	out := make([]commentsv1.Report, 0, len(rs))
	for _, r := range rs {
		out = append(out, commentsv1.Report{ReporterID: r.ReporterID, Reason: r.Reason, CreatedAt: r.CreatedAt})
	}
	return out
}
