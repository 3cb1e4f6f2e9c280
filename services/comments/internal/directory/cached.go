package directory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/devtube/services/comments/internal/domain"
)

type cacheItem struct {
	video     domain.Video
	profile   domain.Profile
	expiresAt time.Time
}

// Cached keeps recently resolved videos and profiles in a bounded LRU with
// a per-entry TTL. Misses are not cached.
type Cached struct {
	videos   Videos
	profiles Profiles
	lru      *lru.Cache[string, cacheItem]
	ttl      time.Duration
	now      func() time.Time
}

func NewCached(videos Videos, profiles Profiles, size int, ttl time.Duration) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	l, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, err
	}
	return &Cached{videos: videos, profiles: profiles, lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *Cached) get(key string) (cacheItem, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return cacheItem{}, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return cacheItem{}, false
	}
	return item, true
}

func (c *Cached) GetVideo(ctx context.Context, videoID string) (domain.Video, error) {
	key := "video:" + videoID
	if item, ok := c.get(key); ok {
		return item.video, nil
	}
	v, err := c.videos.GetVideo(ctx, videoID)
	if err != nil {
		return domain.Video{}, err
	}
	c.lru.Add(key, cacheItem{video: v, expiresAt: c.now().Add(c.ttl)})
	return v, nil
}

// ForgetVideo drops a cached video, e.g. after the catalog deleted it.
func (c *Cached) ForgetVideo(videoID string) {
	c.lru.Remove("video:" + videoID)
}

func (c *Cached) GetProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(userIDs))
	var missing []string
	for _, id := range userIDs {
		if item, ok := c.get("profile:" + id); ok {
			out[id] = item.profile
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := c.profiles.GetProfiles(ctx, missing)
	if err != nil {
		return nil, err
	}
	exp := c.now().Add(c.ttl)
	for id, p := range fetched {
		out[id] = p
		c.lru.Add("profile:"+id, cacheItem{profile: p, expiresAt: exp})
	}
	return out, nil
}
