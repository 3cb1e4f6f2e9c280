package moderation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/devtube/services/comments/internal/domain"
)

const (
	AuthorKindAttributed = "attributed"
	AuthorKindAnonymous  = "anonymous"
)

// AuthorView is either AttributedView or AnonymizedView.
type AuthorView interface {
	Kind() string
	isAuthorView()
}

type AttributedView struct {
	AuthorID  string
	Username  string
	AvatarURL string
}

func (AttributedView) Kind() string  { return AuthorKindAttributed }
func (AttributedView) isAuthorView() {}

func (a AttributedView) MarshalJSON() ([]byte, error) {
	return json.Marshal(authorWire{
		Kind:      AuthorKindAttributed,
		AuthorID:  a.AuthorID,
		Username:  a.Username,
		AvatarURL: a.AvatarURL,
	})
}

// AnonymizedView carries no identifying field at all.
type AnonymizedView struct {
	DisplayName string
}

func (AnonymizedView) Kind() string  { return AuthorKindAnonymous }
func (AnonymizedView) isAuthorView() {}

func (a AnonymizedView) MarshalJSON() ([]byte, error) {
	return json.Marshal(authorWire{Kind: AuthorKindAnonymous, DisplayName: a.DisplayName})
}

type authorWire struct {
	Kind        string `json:"kind"`
	AuthorID    string `json:"author_id,omitempty"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func decodeAuthor(raw json.RawMessage) (AuthorView, error) {
	var w authorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	switch w.Kind {
	case AuthorKindAttributed:
		return AttributedView{AuthorID: w.AuthorID, Username: w.Username, AvatarURL: w.AvatarURL}, nil
	case AuthorKindAnonymous:
		return AnonymizedView{DisplayName: w.DisplayName}, nil
	default:
		return nil, fmt.Errorf("unknown author kind %q", w.Kind)
	}
}

// CommentView is what a particular viewer gets to see of a comment.
type CommentView struct {
	ID            string               `json:"id"`
	VideoID       string               `json:"video_id"`
	ParentID      *string              `json:"parent_id,omitempty"`
	Content       string               `json:"content"`
	ContentHTML   string               `json:"content_html,omitempty"`
	IsAnonymous   bool                 `json:"is_anonymous"`
	Author        AuthorView           `json:"author"`
	CreatedAt     time.Time            `json:"created_at"`
	LikesCount    int                  `json:"likes_count"`
	DislikesCount int                  `json:"dislikes_count"`
	IsPinned      bool                 `json:"is_pinned"`
	IsFlagged     bool                 `json:"is_flagged,omitempty"`
	ViewerState   domain.ReactionState `json:"viewer_state,omitempty"`
	CanDelete     bool                 `json:"can_delete"`
}

func (v *CommentView) UnmarshalJSON(data []byte) error {
	type plain CommentView
	var aux struct {
		plain
		Author json.RawMessage `json:"author"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*v = CommentView(aux.plain)
	if len(aux.Author) == 0 || string(aux.Author) == "null" {
		v.Author = nil
		return nil
	}
	author, err := decodeAuthor(aux.Author)
	if err != nil {
		return err
	}
	v.Author = author
	return nil
}

// FlaggedView is a moderation queue entry.
type FlaggedView struct {
	Comment CommentView     `json:"comment"`
	Reports []domain.Report `json:"reports"`
}
