package domain

import "fmt"

// ReactionState is a viewer's current reaction to a comment. The empty
// value means no record exists.
type ReactionState string

const (
	ReactionNone     ReactionState = ""
	ReactionLiked    ReactionState = "liked"
	ReactionDisliked ReactionState = "disliked"
)

func (s ReactionState) Valid() bool {
	return s == ReactionNone || s == ReactionLiked || s == ReactionDisliked
}

// ParseReactionKind maps the wire intent ("like" / "dislike") to the state
// the viewer asks for.
func ParseReactionKind(kind string) (ReactionState, error) {
	switch kind {
	case "like":
		return ReactionLiked, nil
	case "dislike":
		return ReactionDisliked, nil
	default:
		return ReactionNone, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown reaction %q", kind)}
	}
}

// ReactionCounts is the outcome of a reaction change.
type ReactionCounts struct {
	Likes       int           `json:"likes_count"`
	Dislikes    int           `json:"dislikes_count"`
	ViewerState ReactionState `json:"viewer_state"`
}

// CounterDelta returns how the like and dislike counters move when a
// viewer's record goes from one state to another.
func CounterDelta(from, to ReactionState) (likes, dislikes int) {
	switch from {
	case ReactionLiked:
		likes--
	case ReactionDisliked:
		dislikes--
	}
	switch to {
	case ReactionLiked:
		likes++
	case ReactionDisliked:
		dislikes++
	}
	return likes, dislikes
}
