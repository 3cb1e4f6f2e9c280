// Package service is the comment subsystem's façade. Transports call it with
// an already authenticated caller; it enforces permissions, keeps the
// thread structure valid and leaves storage consistent on every path.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/devtube/internal/platform/events"
	"github.com/example/devtube/services/comments/internal/cache"
	"github.com/example/devtube/services/comments/internal/directory"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/moderation"
	"github.com/example/devtube/services/comments/internal/reaction"
	"github.com/example/devtube/services/comments/internal/render"
	"github.com/example/devtube/services/comments/internal/store"
	"github.com/example/devtube/services/comments/internal/thread"
)

type Publisher interface {
	Publish(subject, eventName, userID string, props map[string]any)
}

type Renderer interface {
	Render(source string) string
}

type Options struct {
	Store    store.CommentStore
	Videos   directory.Videos
	Profiles directory.Profiles // optional
	Cache    cache.ThreadCache  // optional
	Renderer Renderer           // optional, defaults to HTML escaping
	Events   Publisher          // optional
	Logger   *zap.Logger

	MaxReactionAttempts int
	Now                 func() time.Time
	NewID               func() string
}

type Service struct {
	store     store.CommentStore
	threads   *thread.Manager
	reactions *reaction.Engine
	gate      moderation.Gate
	videos    directory.Videos
	profiles  directory.Profiles
	cache     cache.ThreadCache
	renderer  Renderer
	events    Publisher
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
	videoLock *keyedMutex
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Videos == nil {
		return nil, errors.New("service: video directory is required")
	}
	s := &Service{
		store:     opts.Store,
		threads:   thread.NewManager(opts.Store),
		videos:    opts.Videos,
		profiles:  opts.Profiles,
		cache:     opts.Cache,
		renderer:  opts.Renderer,
		events:    opts.Events,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		videoLock: newKeyedMutex(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.renderer == nil {
		s.renderer = render.Plain{}
	}
	if s.events == nil {
		s.events = events.New(nil, s.log)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.reactions = reaction.NewEngine(opts.Store,
		reaction.WithMaxAttempts(opts.MaxReactionAttempts),
		reaction.WithLogger(s.log))
	return s, nil
}

type SubmitInput struct {
	VideoID     string
	Content     string
	ParentID    *string
	IsAnonymous bool
}

// Submit validates and stores a new comment or reply and returns the
// author's own view of it.
func (s *Service) Submit(ctx context.Context, caller domain.Caller, in SubmitInput) (moderation.CommentView, error) {
	if !caller.Authenticated() {
		return moderation.CommentView{}, domain.ErrUnauthenticated
	}
	videoID := strings.TrimSpace(in.VideoID)
	if videoID == "" {
		return moderation.CommentView{}, &domain.ValidationError{Field: "video_id", Reason: "is required"}
	}
	content, err := domain.NormalizeContent(in.Content)
	if err != nil {
		return moderation.CommentView{}, err
	}
	var parentID *string
	if in.ParentID != nil {
		if pid := strings.TrimSpace(*in.ParentID); pid != "" {
			parentID = &pid
		}
	}

	// The video check runs under the lock so a concurrent purge either
	// sees this comment or finishes before the check.
	unlock := s.videoLock.Lock(videoID)
	if _, err := s.videos.GetVideo(ctx, videoID); err != nil {
		unlock()
		return moderation.CommentView{}, domain.Unavailable("load video", err)
	}
	placement, err := s.threads.Attach(ctx, videoID, parentID)
	if err != nil {
		unlock()
		return moderation.CommentView{}, domain.Unavailable("attach", err)
	}
	created, err := s.store.Insert(ctx, domain.Comment{
		ID:          s.newID(),
		VideoID:     placement.VideoID,
		AuthorID:    caller.ID,
		Content:     content,
		IsAnonymous: in.IsAnonymous,
		ParentID:    placement.ParentID,
		CreatedAt:   s.now().UTC(),
	})
	if err == nil {
		s.cache.Invalidate(ctx, videoID)
	}
	unlock()
	if err != nil {
		return moderation.CommentView{}, domain.Unavailable("insert comment", err)
	}

	props := map[string]any{"comment_id": created.ID, "video_id": created.VideoID, "is_reply": created.ParentID != nil}
	s.events.Publish(events.SubjectCommentCreated, "comment_created", s.eventActor(created, caller), props)

	profiles := s.lookupProfiles(ctx, []string{caller.ID})
	return s.project(created, caller, profiles, nil), nil
}

// Delete removes the comment and its whole subtree. Only the author or a
// moderator may do so. A failed delete leaves the subtree as it was and
// can be retried.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, commentID string) ([]string, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	c, err := s.store.Get(ctx, commentID)
	if err != nil {
		return nil, domain.Unavailable("load comment", err)
	}
	if !s.gate.CanDelete(caller, c) {
		return nil, domain.ErrPermissionDenied
	}

	unlock := s.videoLock.Lock(c.VideoID)
	defer unlock()

	ids, err := s.threads.PlanCascadeDelete(ctx, commentID)
	if err != nil {
		return nil, domain.Unavailable("plan delete", err)
	}
	if err := s.removeAll(ctx, c.VideoID, ids); err != nil {
		return nil, err
	}

	s.log.Info("comment subtree deleted",
		zap.String("comment_id", commentID), zap.String("video_id", c.VideoID),
		zap.Int("removed", len(ids)), zap.String("actor", caller.ID))
	s.events.Publish(events.SubjectCommentDeleted, "comment_deleted", caller.ID,
		map[string]any{"comment_id": commentID, "video_id": c.VideoID, "removed_ids": ids})
	return ids, nil
}

// PurgeVideo removes every comment of a video the catalog has deleted.
// Running it twice is harmless.
func (s *Service) PurgeVideo(ctx context.Context, videoID string) (int, error) {
	unlock := s.videoLock.Lock(videoID)
	defer unlock()

	ids, err := s.threads.PlanVideoPurge(ctx, videoID)
	if err != nil {
		return 0, domain.Unavailable("plan purge", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.removeAll(ctx, videoID, ids); err != nil {
		return 0, err
	}
	s.log.Info("video comments purged", zap.String("video_id", videoID), zap.Int("removed", len(ids)))
	s.events.Publish(events.SubjectCommentDeleted, "video_comments_purged", "",
		map[string]any{"video_id": videoID, "removed": len(ids)})
	return len(ids), nil
}

// removeAll tombstones ids, then removes them in one atomic step. When
// that step fails the tombstones are cleared so nothing counts as deleted.
// The caller holds the video lock.
func (s *Service) removeAll(ctx context.Context, videoID string, ids []string) error {
	defer s.cache.Invalidate(ctx, videoID)

	if err := s.threads.MarkTombstoned(ctx, ids); err != nil {
		s.log.Error("tombstone failed", zap.String("video_id", videoID), zap.Error(err))
		return domain.Unavailable("tombstone", err)
	}
	if err := s.store.DeleteMany(ctx, ids); err != nil {
		s.log.Error("cascade delete failed",
			zap.String("video_id", videoID), zap.Int("ids", len(ids)), zap.Error(err))
		if rerr := s.threads.ClearTombstoned(context.WithoutCancel(ctx), ids); rerr != nil {
			s.log.Error("restore after failed delete", zap.String("video_id", videoID), zap.Error(rerr))
		}
		return domain.Unavailable("delete subtree", err)
	}
	return nil
}

// React applies a like or dislike intent ("like" / "dislike").
func (s *Service) React(ctx context.Context, caller domain.Caller, commentID, kind string) (domain.ReactionCounts, error) {
	if !caller.Authenticated() {
		return domain.ReactionCounts{}, domain.ErrUnauthenticated
	}
	desired, err := domain.ParseReactionKind(kind)
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	c, err := s.liveComment(ctx, commentID)
	if err != nil {
		return domain.ReactionCounts{}, err
	}
	counts, err := s.reactions.SetReaction(ctx, commentID, caller.ID, desired)
	if err != nil {
		return domain.ReactionCounts{}, domain.Unavailable("react", err)
	}
	s.invalidate(ctx, c.VideoID)
	s.events.Publish(events.SubjectCommentReacted, "comment_reacted", caller.ID, map[string]any{
		"comment_id": commentID, "video_id": c.VideoID, "state": string(counts.ViewerState),
	})
	return counts, nil
}

// Flag records the caller's report and raises the shared flag. Reporting
// the same comment twice changes nothing.
func (s *Service) Flag(ctx context.Context, caller domain.Caller, commentID, reason string) error {
	if !s.gate.CanFlag(caller) {
		return domain.ErrUnauthenticated
	}
	reason, err := domain.NormalizeReason(reason)
	if err != nil {
		return err
	}
	c, err := s.liveComment(ctx, commentID)
	if err != nil {
		return err
	}
	created, err := s.store.AddReport(ctx, domain.Report{
		CommentID: commentID, ReporterID: caller.ID, Reason: reason, CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Unavailable("add report", err)
	}
	if err := s.store.SetFlagged(ctx, commentID, true); err != nil {
		return domain.Unavailable("set flag", err)
	}
	s.invalidate(ctx, c.VideoID)
	if created {
		s.events.Publish(events.SubjectCommentFlagged, "comment_flagged", caller.ID,
			map[string]any{"comment_id": commentID, "video_id": c.VideoID})
	}
	return nil
}

// Unflag clears the flag after moderator review. Reports stay on record.
func (s *Service) Unflag(ctx context.Context, caller domain.Caller, commentID string) error {
	if !caller.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if !s.gate.CanUnflag(caller) {
		return domain.ErrPermissionDenied
	}
	c, err := s.liveComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.store.SetFlagged(ctx, commentID, false); err != nil {
		return domain.Unavailable("clear flag", err)
	}
	s.invalidate(ctx, c.VideoID)
	return nil
}

func (s *Service) Pin(ctx context.Context, caller domain.Caller, commentID string) error {
	return s.setPinned(ctx, caller, commentID, true)
}

func (s *Service) Unpin(ctx context.Context, caller domain.Caller, commentID string) error {
	return s.setPinned(ctx, caller, commentID, false)
}

func (s *Service) setPinned(ctx context.Context, caller domain.Caller, commentID string, pinned bool) error {
	if !caller.Authenticated() {
		return domain.ErrUnauthenticated
	}
	c, err := s.liveComment(ctx, commentID)
	if err != nil {
		return err
	}
	video, err := s.videos.GetVideo(ctx, c.VideoID)
	if err != nil {
		return domain.Unavailable("load video", err)
	}
	if !s.gate.CanPin(caller, video) {
		return domain.ErrPermissionDenied
	}
	if err := s.store.SetPinned(ctx, commentID, pinned); err != nil {
		return domain.Unavailable("set pin", err)
	}
	s.invalidate(ctx, c.VideoID)
	s.events.Publish(events.SubjectCommentPinned, "comment_pinned", caller.ID,
		map[string]any{"comment_id": commentID, "video_id": c.VideoID, "pinned": pinned})
	return nil
}

// List returns the video's live comments as viewer sees them: pinned
// comments first (oldest first), then the rest newest first.
func (s *Service) List(ctx context.Context, viewer domain.Caller, videoID string) ([]moderation.CommentView, error) {
	if _, err := s.videos.GetVideo(ctx, videoID); err != nil {
		return nil, domain.Unavailable("load video", err)
	}
	comments, err := s.thread(ctx, videoID)
	if err != nil {
		return nil, err
	}
	SortForDisplay(comments)

	var authorIDs []string
	for _, c := range comments {
		if s.gate.RevealsAuthor(c, viewer) {
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}
	profiles := s.lookupProfiles(ctx, authorIDs)

	var states map[string]domain.ReactionState
	if viewer.Authenticated() {
		states, err = s.store.ReactionsByViewer(ctx, videoID, viewer.ID)
		if err != nil {
			return nil, domain.Unavailable("load reactions", err)
		}
	}

	out := make([]moderation.CommentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, s.project(c, viewer, profiles, states))
	}
	return out, nil
}

// ListFlagged is the moderation queue.
func (s *Service) ListFlagged(ctx context.Context, caller domain.Caller, limit int) ([]moderation.FlaggedView, error) {
	if !caller.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if !s.gate.CanReviewFlags(caller) {
		return nil, domain.ErrPermissionDenied
	}
	queue, err := s.store.ListFlagged(ctx, limit)
	if err != nil {
		return nil, domain.Unavailable("list flagged", err)
	}
	authorIDs := make([]string, 0, len(queue))
	for _, fc := range queue {
		authorIDs = append(authorIDs, fc.Comment.AuthorID)
	}
	profiles := s.lookupProfiles(ctx, authorIDs)

	out := make([]moderation.FlaggedView, 0, len(queue))
	for _, fc := range queue {
		out = append(out, moderation.FlaggedView{
			Comment: s.project(fc.Comment, caller, profiles, nil),
			Reports: fc.Reports,
		})
	}
	return out, nil
}

// SortForDisplay orders comments in place: pinned by created_at ascending,
// then unpinned by created_at descending. Ids break ties.
func SortForDisplay(cs []domain.Comment) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if a.IsPinned {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.IsPinned {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// thread returns a copy of the video's live comments, from cache when
// possible. A miss is filled under the video lock so a concurrent write's
// invalidation cannot be overtaken by a stale fill.
func (s *Service) thread(ctx context.Context, videoID string) ([]domain.Comment, error) {
	if cached, ok := s.cache.Get(ctx, videoID); ok {
		return cached, nil
	}
	unlock := s.videoLock.Lock(videoID)
	defer unlock()
	comments, err := s.store.ListByVideo(ctx, videoID, false)
	if err != nil {
		return nil, domain.Unavailable("list comments", err)
	}
	s.cache.Set(ctx, videoID, comments)
	out := make([]domain.Comment, len(comments))
	copy(out, comments)
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, videoID string) {
	unlock := s.videoLock.Lock(videoID)
	s.cache.Invalidate(ctx, videoID)
	unlock()
}

// liveComment loads a comment that is not being deleted.
func (s *Service) liveComment(ctx context.Context, commentID string) (domain.Comment, error) {
	c, err := s.store.Get(ctx, commentID)
	if err != nil {
		return domain.Comment{}, domain.Unavailable("load comment", err)
	}
	if c.IsTombstoned {
		return domain.Comment{}, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}
	return c, nil
}

// lookupProfiles degrades to no profiles when the directory fails; the
// views then carry ids without usernames.
func (s *Service) lookupProfiles(ctx context.Context, userIDs []string) map[string]domain.Profile {
	if s.profiles == nil || len(userIDs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(userIDs))
	unique := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	profiles, err := s.profiles.GetProfiles(ctx, unique)
	if err != nil {
		s.log.Warn("profile lookup failed", zap.Int("ids", len(unique)), zap.Error(err))
		return nil
	}
	return profiles
}

func (s *Service) project(c domain.Comment, viewer domain.Caller, profiles map[string]domain.Profile, states map[string]domain.ReactionState) moderation.CommentView {
	v := s.gate.Project(c, viewer, profiles[c.AuthorID])
	v.ContentHTML = s.renderer.Render(c.Content)
	v.ViewerState = states[c.ID]
	return v
}

// eventActor keeps anonymous authors out of the event stream.
func (s *Service) eventActor(c domain.Comment, caller domain.Caller) string {
	if c.IsAnonymous {
		return ""
	}
	return caller.ID
}
