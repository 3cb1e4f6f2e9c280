// Package reaction turns a viewer's like/dislike intent into a consistent
// reaction record and counters.
package reaction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/devtube/services/comments/internal/domain"
)

const DefaultMaxAttempts = 16

type Store interface {
	GetReaction(ctx context.Context, commentID, viewerID string) (domain.ReactionState, error)
	SwapReaction(ctx context.Context, commentID, viewerID string, expected, next domain.ReactionState) (domain.ReactionCounts, error)
}

type Engine struct {
	store       Store
	log         *zap.Logger
	maxAttempts int
}

type Option func(*Engine)

func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, log: zap.NewNop(), maxAttempts: DefaultMaxAttempts}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NextState applies the toggle rule: asking for the current state removes
// it, anything else replaces it.
func NextState(current, desired domain.ReactionState) domain.ReactionState {
	if current == desired {
		return domain.ReactionNone
	}
	return desired
}

// SetReaction applies desired (liked or disliked) for the viewer. A
// concurrent change to the same record is retried against the fresh state;
// the caller only sees a conflict as ErrUnavailable once the attempt
// budget is spent.
func (e *Engine) SetReaction(ctx context.Context, commentID, viewerID string, desired domain.ReactionState) (domain.ReactionCounts, error) {
	if desired != domain.ReactionLiked && desired != domain.ReactionDisliked {
		return domain.ReactionCounts{}, &domain.ValidationError{Field: "kind", Reason: "must be like or dislike"}
	}
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.ReactionCounts{}, err
		}
		current, err := e.store.GetReaction(ctx, commentID, viewerID)
		if err != nil {
			return domain.ReactionCounts{}, fmt.Errorf("read reaction: %w", err)
		}
		counts, err := e.store.SwapReaction(ctx, commentID, viewerID, current, NextState(current, desired))
		if err == nil {
			return counts, nil
		}
		if !errors.Is(err, domain.ErrReactionConflict) {
			return domain.ReactionCounts{}, err
		}
		e.log.Debug("reaction conflict, retrying",
			zap.String("comment_id", commentID), zap.Int("attempt", attempt))
	}
	return domain.ReactionCounts{}, fmt.Errorf("%w: reaction on %s kept conflicting", domain.ErrUnavailable, commentID)
}
