// Package cache keeps each video's live comment list so repeated reads of
// a popular thread skip the database. Every write to a video invalidates
// its entry.
package cache

import (
	"context"

	"github.com/example/devtube/services/comments/internal/domain"
)

type ThreadCache interface {
	Get(ctx context.Context, videoID string) ([]domain.Comment, bool)
	Set(ctx context.Context, videoID string, comments []domain.Comment)
	Invalidate(ctx context.Context, videoID string)
}

// Nop never caches.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]domain.Comment, bool) { return nil, false }
func (Nop) Set(context.Context, string, []domain.Comment)        {}
func (Nop) Invalidate(context.Context, string)                   {}
