// Package worker consumes catalog events that affect comments.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/devtube/internal/platform/events"
)

const (
	DefaultDurable   = "comments_video_purge"
	DefaultBatchSize = 50
	DefaultMaxWait   = 2 * time.Second
)

var errPoison = errors.New("undecodable event")

// Purger removes every comment of a video.
type Purger interface {
	PurgeVideo(ctx context.Context, videoID string) (int, error)
}

// VideoDeletedEvent is the catalog's videos.deleted payload. Either the
// top-level video_id or the envelope property carries the id.
type VideoDeletedEvent struct {
	EventID    string         `json:"event_id"`
	VideoID    string         `json:"video_id"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (e VideoDeletedEvent) videoID() string {
	if id := strings.TrimSpace(e.VideoID); id != "" {
		return id
	}
	if id, ok := e.Properties["video_id"].(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

type Options struct {
	Durable   string
	BatchSize int
	MaxWait   time.Duration
	// BeforePurge runs ahead of every purge attempt, e.g. to drop the
	// video from a lookup cache so no new comment passes a stale check
	// once the purge has run.
	BeforePurge func(videoID string)
}

// VideoConsumer purges comments when the catalog deletes a video.
type VideoConsumer struct {
	purger Purger
	log    *zap.Logger
	opts   Options
}

func NewVideoConsumer(p Purger, log *zap.Logger, opts Options) *VideoConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Durable == "" {
		opts.Durable = DefaultDurable
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	return &VideoConsumer{purger: p, log: log, opts: opts}
}

// HandleVideoEvent processes one videos.deleted payload. It returns
// errPoison for payloads that can never succeed.
func (c *VideoConsumer) HandleVideoEvent(ctx context.Context, data []byte) error {
	var ev VideoDeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	videoID := ev.videoID()
	if videoID == "" {
		return fmt.Errorf("%w: missing video_id", errPoison)
	}
	if c.opts.BeforePurge != nil {
		c.opts.BeforePurge(videoID)
	}
	n, err := c.purger.PurgeVideo(ctx, videoID)
	if err != nil {
		return fmt.Errorf("purge video %s: %w", videoID, err)
	}
	c.log.Info("purged comments of deleted video",
		zap.String("video_id", videoID), zap.String("event_id", ev.EventID), zap.Int("removed", n))
	return nil
}

type ackable interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// settle acks a handled message, terminates a poison one and naks the
// rest for redelivery.
func (c *VideoConsumer) settle(ctx context.Context, m ackable, data []byte) {
	err := c.HandleVideoEvent(ctx, data)
	switch {
	case err == nil:
		if aerr := m.Ack(); aerr != nil {
			c.log.Warn("ack failed", zap.Error(aerr))
		}
	case errors.Is(err, errPoison):
		c.log.Error("dropping undecodable video event", zap.Error(err))
		if aerr := m.Term(); aerr != nil {
			c.log.Warn("term failed", zap.Error(aerr))
		}
	default:
		c.log.Warn("video event failed, will redeliver", zap.Error(err))
		if aerr := m.Nak(); aerr != nil {
			c.log.Warn("nak failed", zap.Error(aerr))
		}
	}
}

// Run pulls videos.deleted messages until ctx is cancelled.
func (c *VideoConsumer) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.PullSubscribe(events.SubjectVideoDeleted, c.opts.Durable)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.SubjectVideoDeleted, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.opts.BatchSize, nats.MaxWait(c.opts.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.log.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, m := range msgs {
			c.settle(ctx, m, m.Data)
		}
	}
}
