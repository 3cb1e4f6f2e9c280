// Package thread owns the shape of a video's comment forest: where a new
// comment may attach and which comments a delete has to take with it.
package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/devtube/services/comments/internal/domain"
)

// Store is the slice of comment storage the manager reads and writes.
type Store interface {
	Get(ctx context.Context, commentID string) (domain.Comment, error)
	ListByVideo(ctx context.Context, videoID string, includeTombstoned bool) ([]domain.Comment, error)
	MarkTombstoned(ctx context.Context, commentIDs []string) error
	ClearTombstoned(ctx context.Context, commentIDs []string) error
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Placement is where a validated comment goes.
type Placement struct {
	VideoID  string
	ParentID *string
}

// Attach validates the parent for a new comment on videoID. A nil parent
// places the comment at the root.
func (m *Manager) Attach(ctx context.Context, videoID string, parentID *string) (Placement, error) {
	if parentID == nil {
		return Placement{VideoID: videoID}, nil
	}
	parent, err := m.store.Get(ctx, *parentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Placement{}, domain.ErrInvalidParent
	case err != nil:
		return Placement{}, fmt.Errorf("load parent: %w", err)
	case parent.VideoID != videoID:
		return Placement{}, domain.ErrInvalidParent
	case parent.IsTombstoned:
		return Placement{}, domain.ErrParentDeleted
	}
	pid := parent.ID
	return Placement{VideoID: videoID, ParentID: &pid}, nil
}

// PlanCascadeDelete returns commentID followed by every descendant in
// breadth-first order. Tombstoned descendants are included so a retried
// delete still removes them.
func (m *Manager) PlanCascadeDelete(ctx context.Context, commentID string) ([]string, error) {
	root, err := m.store.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	all, err := m.store.ListByVideo(ctx, root.VideoID, true)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	a := newArena(all)
	start, ok := a.index[root.ID]
	if !ok {
		// Removed between the two reads.
		return []string{root.ID}, nil
	}
	return a.subtree(start), nil
}

// PlanVideoPurge returns every comment of the video, roots first.
func (m *Manager) PlanVideoPurge(ctx context.Context, videoID string) ([]string, error) {
	all, err := m.store.ListByVideo(ctx, videoID, true)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	a := newArena(all)
	var out []string
	for _, r := range a.roots {
		out = append(out, a.subtree(r)...)
	}
	return out, nil
}

// MarkTombstoned hides the comments from attach and list before they are
// physically removed.
func (m *Manager) MarkTombstoned(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := m.store.MarkTombstoned(ctx, commentIDs); err != nil {
		return fmt.Errorf("tombstone %d comments: %w", len(commentIDs), err)
	}
	return nil
}

// ClearTombstoned makes the comments visible again after a delete that
// could not complete.
func (m *Manager) ClearTombstoned(ctx context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := m.store.ClearTombstoned(ctx, commentIDs); err != nil {
		return fmt.Errorf("restore %d comments: %w", len(commentIDs), err)
	}
	return nil
}
