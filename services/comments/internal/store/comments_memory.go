package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/devtube/services/comments/internal/domain"
)

// InMemoryCommentStore is the development and test implementation. One
// mutex guards all maps so multi-record operations are atomic.
type InMemoryCommentStore struct {
	mu        sync.RWMutex
	comments  map[string]domain.Comment                  // id -> comment
	reactions map[string]map[string]domain.ReactionState // commentID -> viewerID -> state
	reports   map[string]map[string]domain.Report        // commentID -> reporterID -> report
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments:  make(map[string]domain.Comment),
		reactions: make(map[string]map[string]domain.ReactionState),
		reports:   make(map[string]map[string]domain.Report),
	}
}

func (s *InMemoryCommentStore) Insert(_ context.Context, c domain.Comment) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		switch {
		case !ok, parent.VideoID != c.VideoID:
			return domain.Comment{}, domain.ErrInvalidParent
		case parent.IsTombstoned:
			return domain.Comment{}, domain.ErrParentDeleted
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := s.comments[c.ID]; exists {
		return domain.Comment{}, fmt.Errorf("comment %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.LikesCount, c.DislikesCount = 0, 0
	c.IsTombstoned = false
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) Get(_ context.Context, commentID string) (domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) ListByVideo(_ context.Context, videoID string, includeTombstoned bool) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Comment{}
	for _, c := range s.comments {
		if c.VideoID != videoID || (c.IsTombstoned && !includeTombstoned) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryCommentStore) MarkTombstoned(_ context.Context, commentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range commentIDs {
		c, ok := s.comments[id]
		if !ok {
			continue
		}
		c.IsTombstoned = true
		s.comments[id] = c
	}
	return nil
}

func (s *InMemoryCommentStore) ClearTombstoned(_ context.Context, commentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range commentIDs {
		c, ok := s.comments[id]
		if !ok {
			continue
		}
		c.IsTombstoned = false
		s.comments[id] = c
	}
	return nil
}

func (s *InMemoryCommentStore) DeleteMany(_ context.Context, commentIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]struct{}, len(commentIDs))
	for _, id := range commentIDs {
		doomed[id] = struct{}{}
	}
	// Refuse to leave a surviving child pointing at a removed parent.
	for id, c := range s.comments {
		if _, gone := doomed[id]; gone || c.ParentID == nil {
			continue
		}
		if _, parentGone := doomed[*c.ParentID]; parentGone {
			return fmt.Errorf("comment %s would be orphaned", id)
		}
	}
	for id := range doomed {
		delete(s.comments, id)
		delete(s.reactions, id)
		delete(s.reports, id)
	}
	return nil
}

func (s *InMemoryCommentStore) GetReaction(_ context.Context, commentID, viewerID string) (domain.ReactionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.reactions[commentID][viewerID], nil
}

func (s *InMemoryCommentStore) SwapReaction(_ context.Context, commentID, viewerID string, expected, next domain.ReactionState) (domain.ReactionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.IsTombstoned {
		return domain.ReactionCounts{}, domain.ErrNotFound
	}
	current := s.reactions[commentID][viewerID]
	if current != expected {
		return domain.ReactionCounts{}, domain.ErrReactionConflict
	}

	if next == domain.ReactionNone {
		delete(s.reactions[commentID], viewerID)
	} else {
		if s.reactions[commentID] == nil {
			s.reactions[commentID] = make(map[string]domain.ReactionState)
		}
		s.reactions[commentID][viewerID] = next
	}

	dl, dd := domain.CounterDelta(current, next)
	c.LikesCount += dl
	c.DislikesCount += dd
	s.comments[commentID] = c
	return domain.ReactionCounts{Likes: c.LikesCount, Dislikes: c.DislikesCount, ViewerState: next}, nil
}

func (s *InMemoryCommentStore) ReactionsByViewer(_ context.Context, videoID, viewerID string) (map[string]domain.ReactionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.ReactionState)
	for commentID, byViewer := range s.reactions {
		state, ok := byViewer[viewerID]
		if !ok {
			continue
		}
		if c, exists := s.comments[commentID]; exists && c.VideoID == videoID {
			out[commentID] = state
		}
	}
	return out, nil
}

func (s *InMemoryCommentStore) SetFlagged(_ context.Context, commentID string, flagged bool) error {
	return s.update(commentID, func(c *domain.Comment) { c.IsFlagged = flagged })
}

func (s *InMemoryCommentStore) SetPinned(_ context.Context, commentID string, pinned bool) error {
	return s.update(commentID, func(c *domain.Comment) { c.IsPinned = pinned })
}

func (s *InMemoryCommentStore) update(commentID string, fn func(c *domain.Comment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok || c.IsTombstoned {
		return domain.ErrNotFound
	}
	fn(&c)
	s.comments[commentID] = c
	return nil
}

func (s *InMemoryCommentStore) AddReport(_ context.Context, r domain.Report) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[r.CommentID]
	if !ok || c.IsTombstoned {
		return false, domain.ErrNotFound
	}
	if _, dup := s.reports[r.CommentID][r.ReporterID]; dup {
		return false, nil
	}
	if s.reports[r.CommentID] == nil {
		s.reports[r.CommentID] = make(map[string]domain.Report)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.reports[r.CommentID][r.ReporterID] = r
	return true, nil
}

func (s *InMemoryCommentStore) ListFlagged(_ context.Context, limit int) ([]FlaggedComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = clampLimit(limit)
	var flagged []domain.Comment
	for _, c := range s.comments {
		if c.IsFlagged && !c.IsTombstoned {
			flagged = append(flagged, c)
		}
	}
	sort.Slice(flagged, func(i, j int) bool {
		if !flagged[i].CreatedAt.Equal(flagged[j].CreatedAt) {
			return flagged[i].CreatedAt.After(flagged[j].CreatedAt)
		}
		return flagged[i].ID > flagged[j].ID
	})
	if len(flagged) > limit {
		flagged = flagged[:limit]
	}

	out := make([]FlaggedComment, 0, len(flagged))
	for _, c := range flagged {
		reports := make([]domain.Report, 0, len(s.reports[c.ID]))
		for _, r := range s.reports[c.ID] {
			reports = append(reports, r)
		}
		sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.Before(reports[j].CreatedAt) })
		out = append(out, FlaggedComment{Comment: c, Reports: reports})
	}
	return out, nil
}
