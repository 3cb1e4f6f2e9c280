package directory

import (
	"context"
	"sync"

	"github.com/example/devtube/services/comments/internal/domain"
)

// Memory is a development directory seeded by hand or from tests.
type Memory struct {
	mu       sync.RWMutex
	videos   map[string]domain.Video
	profiles map[string]domain.Profile
}

func NewMemory() *Memory {
	return &Memory{
		videos:   make(map[string]domain.Video),
		profiles: make(map[string]domain.Profile),
	}
}

func (m *Memory) PutVideo(v domain.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = v
}

func (m *Memory) DeleteVideo(videoID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, videoID)
}

func (m *Memory) PutProfile(p domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

func (m *Memory) GetVideo(_ context.Context, videoID string) (domain.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[videoID]
	if !ok {
		return domain.Video{}, domain.ErrNotFound
	}
	return v, nil
}

func (m *Memory) GetProfiles(_ context.Context, userIDs []string) (map[string]domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
