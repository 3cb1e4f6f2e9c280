package store

import (
	"context"

	"github.com/example/devtube/services/comments/internal/domain"
)

// FlaggedComment is an entry of the moderation queue.
type FlaggedComment struct {
	Comment domain.Comment  `json:"comment"`
	Reports []domain.Report `json:"reports"`
}

// CommentStore defines the contract for comment persistence. Every method
// is atomic on its own. Errors are domain sentinels (wrapped) or raw
// infrastructure errors.
type CommentStore interface {
	// Insert stores a new comment. When ParentID is set the parent is
	// re-checked inside the same atomic section: it must exist, belong to
	// the same video and not be tombstoned.
	Insert(ctx context.Context, c domain.Comment) (domain.Comment, error)
	// Get returns the comment even when tombstoned.
	Get(ctx context.Context, commentID string) (domain.Comment, error)
	// ListByVideo returns a video's comments ordered by created_at, id.
	ListByVideo(ctx context.Context, videoID string, includeTombstoned bool) ([]domain.Comment, error)
	MarkTombstoned(ctx context.Context, commentIDs []string) error
	// ClearTombstoned undoes MarkTombstoned for ids that still exist.
	ClearTombstoned(ctx context.Context, commentIDs []string) error
	// DeleteMany removes the comments together with their reactions and
	// reports, all or nothing. Ids that are already gone are ignored.
	DeleteMany(ctx context.Context, commentIDs []string) error

	GetReaction(ctx context.Context, commentID, viewerID string) (domain.ReactionState, error)
	// SwapReaction moves the viewer's record from expected to next and
	// adjusts the counters by the transition. It fails with
	// domain.ErrReactionConflict when the stored state is not expected.
	SwapReaction(ctx context.Context, commentID, viewerID string, expected, next domain.ReactionState) (domain.ReactionCounts, error)
	ReactionsByViewer(ctx context.Context, videoID, viewerID string) (map[string]domain.ReactionState, error)

	SetFlagged(ctx context.Context, commentID string, flagged bool) error
	SetPinned(ctx context.Context, commentID string, pinned bool) error
	// AddReport records one reporter's flag. A repeated report from the
	// same reporter keeps the first record and returns created=false.
	AddReport(ctx context.Context, r domain.Report) (created bool, err error)
	ListFlagged(ctx context.Context, limit int) ([]FlaggedComment, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
