// Package directory resolves the external records comments refer to:
// videos from the catalog and public profiles from the user service.
package directory

import (
	"context"

	"github.com/example/devtube/services/comments/internal/domain"
)

type Videos interface {
	// GetVideo returns domain.ErrNotFound for unknown videos.
	GetVideo(ctx context.Context, videoID string) (domain.Video, error)
}

type Profiles interface {
	// GetProfiles returns the profiles it knows; unknown ids are absent.
	GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
}
