// Package events provides a fire-and-forget JetStream publisher for domain
// events. Analytics and other downstream consumers subscribe to the subjects.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream and subjects owned by the comments service.
const (
	StreamComments = "COMMENTS"

	SubjectCommentCreated = "comments.created"
	SubjectCommentDeleted = "comments.deleted"
	SubjectCommentReacted = "comments.reacted"
	SubjectCommentFlagged = "comments.flagged"
	SubjectCommentPinned  = "comments.pinned"
)

// Subjects published by the catalog and consumed here.
const (
	StreamVideos        = "VIDEOS"
	SubjectVideoDeleted = "videos.deleted"
)

// Event is the canonical envelope sent to every subject.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: time.Now}
}

// Envelope builds the event that Publish would send.
func (p *Publisher) Envelope(eventName, userID string, props map[string]any) Event {
	now := time.Now
	if p != nil && p.now != nil {
		now = p.now
	}
	return Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		OccurredAt: now().UTC(),
		Properties: props,
	}
}

// Publish sends an event asynchronously. Failures are logged as warnings
// and never surface to the caller.
func (p *Publisher) Publish(subject, eventName, userID string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(p.Envelope(eventName, userID, props))
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
