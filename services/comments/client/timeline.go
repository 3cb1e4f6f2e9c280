package client

import (
	"context"
	"strconv"
	"sync"
	"time"

	commentsv1 "github.com/example/devtube/gen/comments/v1"
)

const localIDPrefix = "temp-"

// Entry is one comment in a client's local timeline. Pending entries carry
// only a LocalID until the server confirms them.
type Entry struct {
	LocalID string
	Pending bool
	Comment commentsv1.Comment
}

// Outcome is the server's answer to one submission.
type Outcome struct {
	Comment *commentsv1.Comment
	Err     error
}

// Reconcile merges a submission outcome into its optimistic entry. On
// success the entry takes the server's id, timestamps and projection; on
// failure keep is false and the entry must be dropped.
func Reconcile(entry Entry, outcome Outcome) (Entry, bool) {
	if outcome.Err != nil || outcome.Comment == nil {
		return entry, false
	}
	return Entry{LocalID: entry.LocalID, Comment: *outcome.Comment}, true
}

// Submitter is the part of Client the timeline needs.
type Submitter interface {
	Submit(ctx context.Context, in SubmitInput) (*commentsv1.Comment, error)
}

// Timeline shows a user's own comments before the server confirms them.
// Newest entries come first.
type Timeline struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
	lastID  int64
}

func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

func (t *Timeline) nextLocalID() string {
	n := t.now().UnixNano()
	if n <= t.lastID {
		n = t.lastID + 1
	}
	t.lastID = n
	return localIDPrefix + strconv.FormatInt(n, 10)
}

// AddPending inserts a placeholder for a submission in flight. author is
// what the submitting user should see as the author of their own comment.
func (t *Timeline) AddPending(in SubmitInput, author commentsv1.Author) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextLocalID()
	e := Entry{
		LocalID: id,
		Pending: true,
		Comment: commentsv1.Comment{
			ID:          id,
			VideoID:     in.VideoID,
			ParentID:    in.ParentID,
			Content:     in.Content,
			IsAnonymous: in.IsAnonymous,
			Author:      author,
			CreatedAt:   t.now().UTC(),
			CanDelete:   true,
		},
	}
	t.entries = append([]Entry{e}, t.entries...)
	return e
}

// Resolve applies an outcome to the pending entry with localID. It reports
// whether the entry is still in the timeline afterwards.
func (t *Timeline) Resolve(localID string, outcome Outcome) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.LocalID != localID || !e.Pending {
			continue
		}
		merged, keep := Reconcile(e, outcome)
		if !keep {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return false
		}
		t.entries[i] = merged
		return true
	}
	return false
}

// Post shows the comment immediately, submits it and reconciles the
// result.
func (t *Timeline) Post(ctx context.Context, s Submitter, in SubmitInput, author commentsv1.Author) (Entry, error) {
	pending := t.AddPending(in, author)
	c, err := s.Submit(ctx, in)
	outcome := Outcome{Comment: c, Err: err}
	t.Resolve(pending.LocalID, outcome)
	if err != nil {
		return pending, err
	}
	final, _ := Reconcile(pending, outcome)
	return final, nil
}

// Entries returns a copy of the timeline.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
