// Package moderation decides who may change a comment and what each
// viewer is allowed to see of it.
package moderation

import "github.com/example/devtube/services/comments/internal/domain"

// AnonymousDisplayName is shown in place of the author of an anonymous
// comment.
const AnonymousDisplayName = "Anonymous User"

// Gate holds no state; the zero value is ready to use.
type Gate struct{}

// CanDelete: the author or a moderator.
func (Gate) CanDelete(caller domain.Caller, c domain.Comment) bool {
	if !caller.Authenticated() {
		return false
	}
	return caller.ID == c.AuthorID || caller.IsModerator()
}

// CanPin: the video's creator or a moderator.
func (Gate) CanPin(caller domain.Caller, v domain.Video) bool {
	if !caller.Authenticated() {
		return false
	}
	return caller.ID == v.CreatorID || caller.IsModerator()
}

// CanFlag: any authenticated caller.
func (Gate) CanFlag(caller domain.Caller) bool {
	return caller.Authenticated()
}

// CanUnflag: moderators only.
func (Gate) CanUnflag(caller domain.Caller) bool {
	return caller.IsModerator()
}

func (Gate) CanReviewFlags(caller domain.Caller) bool {
	return caller.IsModerator()
}

// RevealsAuthor reports whether viewer may see who wrote c.
func (Gate) RevealsAuthor(c domain.Comment, viewer domain.Caller) bool {
	if !c.IsAnonymous {
		return true
	}
	if !viewer.Authenticated() {
		return false
	}
	return viewer.ID == c.AuthorID || viewer.IsModerator()
}

// Project builds viewer's view of c. profile is only consulted when the
// author is revealed.
func (g Gate) Project(c domain.Comment, viewer domain.Caller, profile domain.Profile) CommentView {
	var author AuthorView
	if g.RevealsAuthor(c, viewer) {
		author = AttributedView{AuthorID: c.AuthorID, Username: profile.Username, AvatarURL: profile.AvatarURL}
	} else {
		author = AnonymizedView{DisplayName: AnonymousDisplayName}
	}
	v := CommentView{
		ID:            c.ID,
		VideoID:       c.VideoID,
		ParentID:      c.ParentID,
		Content:       c.Content,
		IsAnonymous:   c.IsAnonymous,
		Author:        author,
		CreatedAt:     c.CreatedAt,
		LikesCount:    c.LikesCount,
		DislikesCount: c.DislikesCount,
		IsPinned:      c.IsPinned,
		CanDelete:     g.CanDelete(viewer, c),
	}
	if viewer.IsModerator() {
		v.IsFlagged = c.IsFlagged
	}
	return v
}
