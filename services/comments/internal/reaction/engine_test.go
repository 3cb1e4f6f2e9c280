package reaction

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/store"
)

func newComment(t *testing.T, s *store.InMemoryCommentStore) string {
	t.Helper()
	c, err := s.Insert(context.Background(), domain.Comment{VideoID: "v", AuthorID: "a", Content: "c"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return c.ID
}

func TestNextState(t *testing.T) {
	if NextState(domain.ReactionNone, domain.ReactionLiked) != domain.ReactionLiked {
		t.Fatal("none + like = liked")
	}
	if NextState(domain.ReactionLiked, domain.ReactionLiked) != domain.ReactionNone {
		t.Fatal("liked + like = none")
	}
	if NextState(domain.ReactionLiked, domain.ReactionDisliked) != domain.ReactionDisliked {
		t.Fatal("liked + dislike = disliked")
	}
}

func TestSetReaction_Toggle(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryCommentStore()
	e := NewEngine(s)
	id := newComment(t, s)

	c, err := e.SetReaction(ctx, id, "v1", domain.ReactionLiked)
	if err != nil || c.Likes != 1 || c.ViewerState != domain.ReactionLiked {
		t.Fatalf("like: %+v %v", c, err)
	}
	c, _ = e.SetReaction(ctx, id, "v1", domain.ReactionLiked)
	if c.Likes != 0 || c.Dislikes != 0 || c.ViewerState != domain.ReactionNone {
		t.Fatalf("second like must toggle off: %+v", c)
	}
	_, _ = e.SetReaction(ctx, id, "v1", domain.ReactionLiked)
	c, _ = e.SetReaction(ctx, id, "v1", domain.ReactionDisliked)
	if c.Likes != 0 || c.Dislikes != 1 || c.ViewerState != domain.ReactionDisliked {
		t.Fatalf("swap: %+v", c)
	}
}

func TestSetReaction_MissingComment(t *testing.T) {
	e := NewEngine(store.NewInMemoryCommentStore())
	if _, err := e.SetReaction(context.Background(), "nope", "v1", domain.ReactionLiked); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetReaction_RejectsNone(t *testing.T) {
	e := NewEngine(store.NewInMemoryCommentStore())
	if _, err := e.SetReaction(context.Background(), "x", "v1", domain.ReactionNone); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSetReaction_ConcurrentViewers(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryCommentStore()
	e := NewEngine(s)
	id := newComment(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			desired := domain.ReactionLiked
			if i%2 == 1 {
				desired = domain.ReactionDisliked
			}
			if _, err := e.SetReaction(ctx, id, "viewer-"+strconv.Itoa(i), desired); err != nil {
				t.Errorf("viewer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := s.Get(ctx, id)
	if got.LikesCount != 25 || got.DislikesCount != 25 {
		t.Fatalf("expected 25/25, got %d/%d", got.LikesCount, got.DislikesCount)
	}
}

func TestSetReaction_SameViewerConcurrent(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryCommentStore()
	e := NewEngine(s, WithMaxAttempts(1000))
	id := newComment(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.SetReaction(ctx, id, "same", domain.ReactionLiked); err != nil {
				t.Errorf("react: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, id)
	state, _ := s.GetReaction(ctx, id, "same")
	// Two toggles serialize to on-then-off; the counter always matches the record.
	want := 0
	if state == domain.ReactionLiked {
		want = 1
	}
	if got.LikesCount != want || got.DislikesCount != 0 {
		t.Fatalf("counter %d does not match record %q", got.LikesCount, state)
	}
}

// conflictingStore reports a conflict a fixed number of times before
// delegating.
type conflictingStore struct {
	*store.InMemoryCommentStore
	mu        sync.Mutex
	conflicts int
	swaps     int
}

func (c *conflictingStore) SwapReaction(ctx context.Context, commentID, viewerID string, expected, next domain.ReactionState) (domain.ReactionCounts, error) {
	c.mu.Lock()
	c.swaps++
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return domain.ReactionCounts{}, domain.ErrReactionConflict
	}
	c.mu.Unlock()
	return c.InMemoryCommentStore.SwapReaction(ctx, commentID, viewerID, expected, next)
}

func TestSetReaction_RetriesConflicts(t *testing.T) {
	mem := store.NewInMemoryCommentStore()
	id := newComment(t, mem)
	s := &conflictingStore{InMemoryCommentStore: mem, conflicts: 3}

	c, err := NewEngine(s).SetReaction(context.Background(), id, "v1", domain.ReactionLiked)
	if err != nil || c.Likes != 1 {
		t.Fatalf("expected success after retries: %+v %v", c, err)
	}
	if s.swaps != 4 {
		t.Fatalf("expected 4 swap attempts, got %d", s.swaps)
	}
}

func TestSetReaction_ExhaustedBudget(t *testing.T) {
	mem := store.NewInMemoryCommentStore()
	id := newComment(t, mem)
	s := &conflictingStore{InMemoryCommentStore: mem, conflicts: 100}

	_, err := NewEngine(s, WithMaxAttempts(5)).SetReaction(context.Background(), id, "v1", domain.ReactionLiked)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrReactionConflict) {
		t.Fatal("conflict must not leak to the caller")
	}
}
